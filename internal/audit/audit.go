package audit

import (
	"context"

	"github.com/tomfuertes/murmur/pkg/log"
)

// Audit actions for the room.
const (
	ActionConnect        = "room.connect"
	ActionDisconnect     = "room.disconnect"
	ActionRoomFull       = "room.full"
	ActionPromptAccepted = "prompt.accepted"
	ActionPromptApplied  = "prompt.applied"
	ActionPromptRejected = "prompt.rejected"
	ActionRateLimited    = "prompt.rate_limited"
	ActionPromptBlocked  = "prompt.blocked"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldPromptID, targetID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action string, targetID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldPromptID, targetID).
		Str(FieldDetail, detail).
		Msg(msg)
}
