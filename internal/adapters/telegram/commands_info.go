package telegram

import (
	"fmt"
	"strings"

	"hermes/internal/adapters/ai"
	"hermes/pkg/errors"
	"hermes/pkg/telegram"
)

func (h *Handler) handleStart(ctx *telegram.CommandContext) error {
	var sb strings.Builder
	sb.WriteString("Hi! I route your requests to AI models and track spend.\n\n")
	sb.WriteString("Commands:\n")

	for _, cmd := range h.registry.Commands(false) {
		if cmd.Usage != "" {
			sb.WriteString(fmt.Sprintf("%s - %s\n", cmd.Usage, cmd.Description))
		} else {
			sb.WriteString(fmt.Sprintf("/%s - %s\n", cmd.Name, cmd.Description))
		}
	}

	sb.WriteString("\nSend a photo first and the image commands will pick it up automatically.")
	return ctx.Bot.SendMessage(ctx.ChatID, sb.String())
}

func (h *Handler) handleSummary(ctx *telegram.CommandContext) error {
	if ctx.Args == "" {
		return ctx.Bot.SendMessage(ctx.ChatID, "Please provide a video URL: /summary <URL>")
	}
	videoURL := strings.Fields(ctx.Args)[0]

	if err := ctx.Bot.SendMessage(ctx.ChatID, "Downloading and transcribing the video, this can take a while..."); err != nil {
		return err
	}

	transcript, err := h.speech.Transcribe(ctx.Ctx, videoURL)
	if err != nil {
		h.log.Errorw("Transcription failed", "url", videoURL, "error", err)
		return ctx.Bot.SendMessage(ctx.ChatID,
			"Could not transcribe the video. Check the URL and try again.")
	}

	out := h.ai.Do(ctx.Ctx, ai.Request{
		Capability: ai.CapSummary,
		System:     "You summarize video transcripts. Produce a concise structured summary with the key points.",
		Prompt:     transcript,
	})
	// Anything but plain text (a failure, or an image smuggled through the
	// URL extraction) cannot be presented as a summary
	if out.Kind != ai.OutcomeText {
		h.recordCost(out.GenerationID, ctx.User, ctx.Command)
		return ctx.Bot.SendMessage(ctx.ChatID, "Could not summarize the transcript.")
	}

	h.recordCost(out.GenerationID, ctx.User, ctx.Command)
	return ctx.Bot.SendMessage(ctx.ChatID, "Video summary:\n\n"+out.Text)
}

func (h *Handler) handleBalance(ctx *telegram.CommandContext) error {
	balance, err := h.billing.Balance(ctx.Ctx)
	if err != nil {
		h.log.Errorw("Balance lookup failed", "error", err)
		return ctx.Bot.SendMessage(ctx.ChatID, "Could not fetch the balance. Try again later.")
	}

	msg := fmt.Sprintf(
		"<b>Account balance</b>\n\n"+
			"Credits: $%s\n"+
			"Used: $%s\n"+
			"Remaining: $%s",
		balance.TotalCredits.StringFixed(2),
		balance.TotalUsage.StringFixed(4),
		balance.Remaining().StringFixed(4),
	)
	return ctx.Bot.SendHTML(ctx.ChatID, msg)
}

func (h *Handler) handleStatistics(ctx *telegram.CommandContext) error {
	accounts, err := h.billing.Statistics(ctx.Ctx)
	if err != nil {
		h.log.Errorw("Statistics query failed", "error", err)
		return ctx.Bot.SendMessage(ctx.ChatID, "Could not fetch statistics. Try again later.")
	}

	if len(accounts) == 0 {
		return ctx.Bot.SendMessage(ctx.ChatID, "No usage recorded yet.")
	}

	var sb strings.Builder
	sb.WriteString("<b>Usage statistics</b>\n\n")
	for i, account := range accounts {
		sb.WriteString(fmt.Sprintf(
			"%d. %s: $%s over %d requests (last %s)\n",
			i+1,
			telegram.EscapeHTML(account.DisplayName()),
			account.TotalSpent.StringFixed(4),
			account.TotalRequests,
			account.LastRequestAt.Format("2006-01-02"),
		))
	}
	return ctx.Bot.SendHTML(ctx.ChatID, sb.String())
}

func (h *Handler) handleReload(ctx *telegram.CommandContext) error {
	if err := h.providers.Reload(); err != nil {
		h.log.Errorw("Provider reload failed", "error", err)
		if errors.Is(err, errors.ErrConfig) {
			return ctx.Bot.SendMessage(ctx.ChatID,
				"Reload failed, keeping the previous configuration: "+err.Error())
		}
		return ctx.Bot.SendMessage(ctx.ChatID, "Reload failed: "+err.Error())
	}

	var sb strings.Builder
	sb.WriteString("Configuration reloaded.\n\n")
	for _, info := range h.providers.Capabilities() {
		sb.WriteString(fmt.Sprintf("%s: %s (%s)\n", info.Name, info.Active, info.Model))
	}
	return ctx.Bot.SendMessage(ctx.ChatID, sb.String())
}
