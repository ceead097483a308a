package telegram

import (
	"hermes/pkg/telegram"
)

func (h *Handler) registerCommands() {
	h.registry.Register(telegram.CommandConfig{
		Name:        "start",
		Description: "Show what the bot can do",
		Handler:     h.handleStart,
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "describe",
		Description: "Describe a picture",
		Usage:       "/describe [question] (reply to a photo or send one first)",
		Handler:     h.handleDescribe,
		Middleware:  []telegram.CommandMiddleware{telegram.TypingMiddleware()},
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "imagegen",
		Description: "Generate an image from a prompt",
		Usage:       "/imagegen <prompt>",
		Handler:     h.handleImageGen,
		Middleware:  []telegram.CommandMiddleware{telegram.TypingMiddleware()},
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "abcgen",
		Description: "Generate an illustrated alphabet poster on a theme",
		Usage:       "/abcgen <theme>",
		Handler:     h.handleABCGen,
		Middleware:  []telegram.CommandMiddleware{telegram.TypingMiddleware()},
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "imagechange",
		Description: "Change the last photo you sent",
		Usage:       "/imagechange <what to change>",
		Handler:     h.handleImageChange,
		Middleware:  []telegram.CommandMiddleware{telegram.TypingMiddleware()},
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "changelast",
		Description: "Change the last generated image again",
		Usage:       "/changelast <what to change>",
		Handler:     h.handleChangeLast,
		Middleware:  []telegram.CommandMiddleware{telegram.TypingMiddleware()},
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "mergeimage",
		Description: "Process several photos sent as one album",
		Usage:       "/mergeimage <prompt>",
		Handler:     h.handleMergeImage,
		Middleware:  []telegram.CommandMiddleware{telegram.TypingMiddleware()},
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "summary",
		Description: "Summarize a video by URL",
		Usage:       "/summary <video URL>",
		Handler:     h.handleSummary,
		Middleware:  []telegram.CommandMiddleware{telegram.TypingMiddleware()},
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "balance",
		Description: "Show the provider account balance",
		Handler:     h.handleBalance,
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "statistics",
		Aliases:     []string{"stats"},
		Description: "Show per-user spend statistics",
		Handler:     h.handleStatistics,
	})

	h.registry.Register(telegram.CommandConfig{
		Name:        "reload",
		Description: "Reload the provider configuration",
		Handler:     h.handleReload,
		Hidden:      true,
	})
}
