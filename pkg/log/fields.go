package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Room
	FieldRoomID    = "room_id"
	FieldConnID    = "conn_id"
	FieldListeners = "listeners"

	// Prompt pipeline
	FieldPromptID = "prompt_id"
	FieldAuthor   = "author"
	FieldStage    = "stage"
	FieldScope    = "scope"

	// Service
	FieldService   = "service"
	FieldComponent = "component"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
