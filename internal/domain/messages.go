package domain

// WebSocket message types from client.
const (
	MsgTypeSubmitPrompt = "submit_prompt"
	MsgTypePing         = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeVibeState      = "vibe_state"
	MsgTypeVibeUpdated    = "vibe_updated"
	MsgTypePromptRejected = "prompt_rejected"
	MsgTypePromptAccepted = "prompt_accepted"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
)

// Error codes
const (
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeInvalidPrompt = "INVALID_PROMPT"
	ErrCodeVerifyFailed  = "VERIFY_FAILED"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type SubmitPromptMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Server -> Client messages

// VibeStateMessage carries the full current state, sent to a listener
// right after it connects.
type VibeStateMessage struct {
	Type      string    `json:"type"`
	State     VibeState `json:"state"`
	Listeners int       `json:"listeners"`
}

// VibeUpdatedMessage announces an applied prompt together with the new
// full state, broadcast to every listener.
type VibeUpdatedMessage struct {
	Type   string       `json:"type"`
	State  VibeState    `json:"state"`
	Prompt PromptRecord `json:"prompt"`
}

// PromptRejectedMessage announces a moderated-out or failed prompt,
// broadcast to every listener.
type PromptRejectedMessage struct {
	Type   string       `json:"type"`
	Prompt PromptRecord `json:"prompt"`
	Reason string       `json:"reason"`
}

// PromptAcceptedMessage acknowledges admission to the submitter only.
// Acceptance means the prompt entered the pipeline, not that it will apply.
type PromptAcceptedMessage struct {
	Type     string `json:"type"`
	PromptID string `json:"prompt_id"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}

// REST payloads

// RoomSummary is the REST view of a room: the live state plus the most
// recent prompt history.
type RoomSummary struct {
	State     VibeState      `json:"state"`
	Listeners int            `json:"listeners"`
	Prompts   []PromptRecord `json:"prompts"`
}

type RecentPromptsResponse struct {
	Prompts []PromptRecord `json:"prompts"`
}
