package world

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"
)

// logWithUser auto-tags a log line with the calling user's ID, the same
// convention the wider plugin uses so every line stays queryable by user.
func logWithUser(ctx context.Context, logger runtime.Logger, level, message string, fields map[string]interface{}) {
	userID := ""
	if uid, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); ok {
		userID = uid
	}
	if userID != "" {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields["user"] = userID
	}

	if len(fields) > 0 {
		switch level {
		case "debug":
			logger.WithFields(fields).Debug(message)
		case "warn":
			logger.WithFields(fields).Warn(message)
		case "error":
			logger.WithFields(fields).Error(message)
		default:
			logger.WithFields(fields).Info(message)
		}
		return
	}
	switch level {
	case "debug":
		logger.Debug(message)
	case "warn":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}
}

func logError(ctx context.Context, logger runtime.Logger, message string, err error) {
	fields := map[string]interface{}{}
	if err != nil {
		fields["error"] = err.Error()
	}
	logWithUser(ctx, logger, "error", message, fields)
}

func logInfo(ctx context.Context, logger runtime.Logger, message string)  { logWithUser(ctx, logger, "info", message, nil) }
func logWarn(ctx context.Context, logger runtime.Logger, message string)  { logWithUser(ctx, logger, "warn", message, nil) }
func logDebug(ctx context.Context, logger runtime.Logger, message string) { logWithUser(ctx, logger, "debug", message, nil) }
