package telegram

import (
	"fmt"
	"time"

	"hermes/pkg/logger"
)

// LoggingMiddleware logs command execution with timing
func LoggingMiddleware(log *logger.Logger) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			start := time.Now()

			log.Infow("Executing command",
				"command", ctx.Command,
				"chat_id", ctx.ChatID,
				"has_args", ctx.Args != "",
			)

			err := next(ctx)
			duration := time.Since(start)

			if err != nil {
				log.Errorw("Command failed",
					"command", ctx.Command,
					"chat_id", ctx.ChatID,
					"duration_ms", duration.Milliseconds(),
					"error", err,
				)
			} else {
				log.Debugw("Command completed",
					"command", ctx.Command,
					"chat_id", ctx.ChatID,
					"duration_ms", duration.Milliseconds(),
				)
			}
			return err
		}
	}
}

// RecoveryMiddleware recovers from panics in command handlers
func RecoveryMiddleware(log *logger.Logger) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorw("Command handler panicked",
						"command", ctx.Command,
						"chat_id", ctx.ChatID,
						"panic", r,
					)
					err = fmt.Errorf("internal error")
					ctx.Bot.SendMessage(ctx.ChatID, "An unexpected error occurred.")
				}
			}()
			return next(ctx)
		}
	}
}

// AllowedChatsMiddleware restricts commands to a set of chat IDs.
// An empty list allows everyone.
func AllowedChatsMiddleware(allowed []int64, log *logger.Logger) CommandMiddleware {
	permitted := make(map[int64]bool, len(allowed))
	for _, id := range allowed {
		permitted[id] = true
	}

	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			if len(permitted) == 0 || permitted[ctx.ChatID] {
				return next(ctx)
			}

			log.Warnw("Command from unauthorized chat",
				"command", ctx.Command,
				"chat_id", ctx.ChatID,
			)
			return ctx.Bot.SendMessage(ctx.ChatID, "This bot is not available in this chat.")
		}
	}
}

// TypingMiddleware shows a typing indicator while the command runs
func TypingMiddleware() CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			_ = ctx.Bot.SendChatAction(ctx.ChatID, ActionTyping)
			return next(ctx)
		}
	}
}

// MetricsMiddleware reports each handled command to a recorder
func MetricsMiddleware(record func(command string)) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			record(ctx.Command)
			return next(ctx)
		}
	}
}
