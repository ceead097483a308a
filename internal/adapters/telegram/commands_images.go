package telegram

import (
	"fmt"

	"hermes/internal/adapters/ai"
	"hermes/pkg/telegram"
)

const defaultDescribePrompt = "What is shown in this picture? Describe it in detail."

func (h *Handler) handleDescribe(ctx *telegram.CommandContext) error {
	image, ok := h.inputImage(ctx)
	if !ok {
		return ctx.Bot.SendMessage(ctx.ChatID,
			"No picture found. Reply to a photo with /describe, or send a photo first.")
	}

	prompt := ctx.Args
	if prompt == "" {
		prompt = defaultDescribePrompt
	}

	out := h.ai.Do(ctx.Ctx, ai.Request{
		Capability: ai.CapDescribe,
		Prompt:     prompt,
		Images:     [][]byte{image},
	})
	return h.deliverOutcome(ctx, out, "")
}

func (h *Handler) handleImageGen(ctx *telegram.CommandContext) error {
	if ctx.Args == "" {
		return ctx.Bot.SendMessage(ctx.ChatID, "Please provide a prompt: /imagegen <prompt>")
	}

	_ = ctx.Bot.SendChatAction(ctx.ChatID, telegram.ActionUploadPhoto)

	out := h.ai.Do(ctx.Ctx, ai.Request{
		Capability: ai.CapImageGen,
		Prompt:     ctx.Args,
		WantImage:  true,
	})
	return h.deliverOutcome(ctx, out, fmt.Sprintf("Prompt: %s", ctx.Args))
}

func (h *Handler) handleABCGen(ctx *telegram.CommandContext) error {
	if ctx.Args == "" {
		return ctx.Bot.SendMessage(ctx.ChatID, "Please provide a theme: /abcgen <theme>")
	}

	_ = ctx.Bot.SendChatAction(ctx.ChatID, telegram.ActionUploadPhoto)

	prompt := fmt.Sprintf(
		"Draw an illustrated alphabet poster on the theme %q with a title and captions. "+
			"Perform a slight zoom out on this image to fix the cropped borders.", ctx.Args)

	out := h.ai.Do(ctx.Ctx, ai.Request{
		Capability: ai.CapABCGen,
		Prompt:     prompt,
		WantImage:  true,
	})
	return h.deliverOutcome(ctx, out, fmt.Sprintf("Theme: %s", ctx.Args))
}

func (h *Handler) handleImageChange(ctx *telegram.CommandContext) error {
	if ctx.Args == "" {
		return ctx.Bot.SendMessage(ctx.ChatID, "Please describe the change: /imagechange <what to change>")
	}

	image, ok := h.inputImage(ctx)
	if !ok {
		return ctx.Bot.SendMessage(ctx.ChatID,
			"No picture found. Reply to a photo with /imagechange, or send a photo first.")
	}

	_ = ctx.Bot.SendChatAction(ctx.ChatID, telegram.ActionUploadPhoto)

	out := h.ai.Do(ctx.Ctx, ai.Request{
		Capability: ai.CapImageChange,
		Prompt:     ctx.Args,
		Images:     [][]byte{image},
		WantImage:  true,
	})
	return h.deliverOutcome(ctx, out, fmt.Sprintf("Change: %s", ctx.Args))
}

func (h *Handler) handleChangeLast(ctx *telegram.CommandContext) error {
	if ctx.Args == "" {
		return ctx.Bot.SendMessage(ctx.ChatID, "Please describe the change: /changelast <what to change>")
	}

	image, ok := h.sessions.LastGenerated(ctx.ChatID)
	if !ok {
		return ctx.Bot.SendMessage(ctx.ChatID,
			"No generated image yet. Use /imagegen or /imagechange first, then /changelast to refine the result.")
	}

	_ = ctx.Bot.SendChatAction(ctx.ChatID, telegram.ActionUploadPhoto)

	out := h.ai.Do(ctx.Ctx, ai.Request{
		Capability: ai.CapImageChange,
		Prompt:     ctx.Args,
		Images:     [][]byte{image},
		WantImage:  true,
	})
	return h.deliverOutcome(ctx, out, fmt.Sprintf("Change: %s", ctx.Args))
}

func (h *Handler) handleMergeImage(ctx *telegram.CommandContext) error {
	if ctx.Args == "" {
		return ctx.Bot.SendMessage(ctx.ChatID, "Please provide a prompt: /mergeimage <prompt>")
	}

	images := h.sessions.LatestGroupImages(ctx.ChatID)
	if len(images) == 0 {
		return ctx.Bot.SendMessage(ctx.ChatID,
			"No album found. Send several photos as one album, then use /mergeimage <prompt>.")
	}
	if len(images) < 2 {
		return ctx.Bot.SendMessage(ctx.ChatID, fmt.Sprintf(
			"Found only %d photo. /mergeimage needs at least 2; send them together as one album.",
			len(images)))
	}

	_ = ctx.Bot.SendChatAction(ctx.ChatID, telegram.ActionUploadPhoto)

	out := h.ai.Do(ctx.Ctx, ai.Request{
		Capability: ai.CapMergeImage,
		Prompt:     ctx.Args,
		Images:     images,
		WantImage:  true,
	})
	return h.deliverOutcome(ctx, out, fmt.Sprintf("Processed %d photos. Prompt: %s", len(images), ctx.Args))
}

// inputImage finds the picture a command refers to: a replied-to photo
// wins, then the chat's last sent photo
func (h *Handler) inputImage(ctx *telegram.CommandContext) ([]byte, bool) {
	if reply := ctx.Message.ReplyTo; reply.HasPhoto() {
		data, err := h.bot.DownloadFile(ctx.Ctx, reply.LargestPhoto().FileID)
		if err == nil {
			return data, true
		}
		h.log.Warnw("Failed to download replied photo", "chat_id", ctx.ChatID, "error", err)
	}
	return h.sessions.LastImage(ctx.ChatID)
}

// deliverOutcome sends a settled outcome to the chat and kicks off cost
// recording. Failures still bill when a generation ID is attached.
func (h *Handler) deliverOutcome(ctx *telegram.CommandContext, out ai.Outcome, caption string) error {
	h.recordCost(out.GenerationID, ctx.User, ctx.Command)

	switch out.Kind {
	case ai.OutcomeText:
		return ctx.Bot.SendMessage(ctx.ChatID, out.Text)

	case ai.OutcomeImage:
		h.keepGenerated(ctx.ChatID, out.Bytes, out.Format)
		return ctx.Bot.SendPhoto(ctx.ChatID, out.Bytes, caption)

	case ai.OutcomeImageRef:
		// Re-upload so the image can be cached for /changelast; fall
		// back to sending the URL as-is
		data, err := h.fetchImage(ctx.Ctx, out.URL)
		if err != nil {
			h.log.Warnw("Failed to fetch hosted image, sending URL",
				"chat_id", ctx.ChatID, "error", err)
			return ctx.Bot.SendPhotoURL(ctx.ChatID, out.URL, caption)
		}
		h.keepGenerated(ctx.ChatID, data, "")
		return ctx.Bot.SendPhoto(ctx.ChatID, data, caption)

	default:
		msg := out.Message
		if msg == "" {
			msg = "The request failed. Please try again."
		}
		return ctx.Bot.SendMessage(ctx.ChatID, msg)
	}
}

// keepGenerated remembers the image for /changelast and archives it on disk
func (h *Handler) keepGenerated(chatID int64, data []byte, format string) {
	h.sessions.RememberGenerated(chatID, data)
	if h.images != nil {
		if _, err := h.images.Save(data, format); err != nil {
			h.log.Warnw("Failed to archive generated image", "chat_id", chatID, "error", err)
		}
	}
}
