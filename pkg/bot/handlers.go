package bot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const defaultPhotoCaption = "Describe this image."

func chatKey(chatID int64) string { return strconv.FormatInt(chatID, 10) }

// handleText is the only entry path gated by the session policy: a stale
// conversation gets a confirmation prompt and the message is stashed until
// the user answers.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	key := chatKey(chatID)
	b.typing(chatID)

	if b.policy.ShouldPrompt(ctx, key) {
		b.policy.Stash(key, msg.Text)
		prompt := tgbotapi.NewMessage(chatID, "It has been a while since your last message. Start a new session?")
		prompt.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Yes", "1"),
				tgbotapi.NewInlineKeyboardButtonData("No", "0"),
			),
		)
		if _, err := b.api.Send(prompt); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("send session prompt failed")
		}
		return
	}

	b.routeText(ctx, chatID, msg.Text)
}

func (b *Bot) routeText(ctx context.Context, chatID int64, text string) {
	reply, err := b.rtr.Ask(ctx, chatKey(chatID), text)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.sendReply(ctx, chatID, reply)
}

// handleCallback answers the stale-session prompt. "1" resets the history
// and discards the stashed message; "0" routes the stashed message as if
// it had just arrived.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("answer callback failed")
	}
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	key := chatKey(chatID)
	b.typing(chatID)

	if cq.Data == "1" {
		b.policy.TakePending(key)
		if err := b.rtr.Reset(ctx, key); err != nil {
			b.sendError(ctx, chatID, err)
			return
		}
		b.sendPlain(ctx, chatID, "Started a new session")
		return
	}

	pending, ok := b.policy.TakePending(key)
	if !ok {
		zerolog.Ctx(ctx).Warn().Str("key", key).Msg("callback with no pending message")
		return
	}
	b.routeText(ctx, chatID, pending)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.typing(chatID)

	switch msg.Command() {
	case "new_session":
		if err := b.rtr.Reset(ctx, chatKey(chatID)); err != nil {
			b.sendError(ctx, chatID, err)
			return
		}
		b.sendPlain(ctx, chatID, "Started a new session")
	case "start":
		b.sendPlain(ctx, chatID, fmt.Sprintf("Hi %s!", msg.From.FirstName))
	case "help":
		b.sendPlain(ctx, chatID, helpText(msg.From.FirstName))
	case "set_model":
		b.handleSetModel(ctx, chatID, msg.CommandArguments())
	case "get_model":
		model, err := b.rtr.Model(ctx, chatKey(chatID))
		if err != nil {
			b.sendError(ctx, chatID, err)
			return
		}
		b.sendPlain(ctx, chatID, "Current model: "+model)
	case "image":
		b.handleImage(ctx, chatID, msg.CommandArguments())
	default:
		zerolog.Ctx(ctx).Warn().Str("command", msg.Command()).Msg("unknown command")
		b.sendPlain(ctx, chatID, "Command not recognized")
	}
}

func helpText(firstName string) string {
	return fmt.Sprintf(`Hi %s!
I relay your messages to the language model of your choice.

/new_session  start over, keeping the selected model
/set_model <name>  pick a model
/get_model  show the selected model
/image [model:<name>] <prompt>  generate an image`, firstName)
}

func (b *Bot) handleSetModel(ctx context.Context, chatID int64, arg string) {
	var model string
	if fields := strings.Fields(arg); len(fields) > 0 {
		model = fields[0]
	}
	if err := b.rtr.SetModel(ctx, chatKey(chatID), model); err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.sendPlain(ctx, chatID, "Model set to "+model)
}

var imageModelRe = regexp.MustCompile(`model:(\S+)\s+(.+)`)

// parseImageArgs splits "/image [model:<name>] <prompt>" arguments into the
// image model and the prompt; the model defaults when no prefix is given.
func parseImageArgs(arg, defaultModel string) (model, prompt string) {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "model:") {
		m := imageModelRe.FindStringSubmatch(arg)
		if m == nil {
			return defaultModel, ""
		}
		return m[1], strings.TrimSpace(m[2])
	}
	return defaultModel, arg
}

func (b *Bot) handleImage(ctx context.Context, chatID int64, arg string) {
	model, prompt := parseImageArgs(arg, b.imageModel)
	img, err := b.rtr.GenerateImage(ctx, model, prompt)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}

	var photo tgbotapi.PhotoConfig
	if img.URL != "" {
		photo = tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(img.URL))
	} else {
		photo = tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.png", Bytes: img.Data})
	}
	photo.Caption = img.Caption
	if _, err := b.api.Send(photo); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send generated image failed")
		b.sendPlain(ctx, chatID, "Error while sending the generated image")
	}
}

// handleVoice transcribes the voice note, echoes the transcript, routes it
// like a text message, and answers with synthesized speech plus the text.
// This path bypasses the session policy.
func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.typing(chatID)

	if b.speech.Transcriber == nil || b.speech.Synthesizer == nil {
		b.sendPlain(ctx, chatID, "Voice messages are not enabled on this deployment")
		return
	}

	audio, err := b.downloadFile(ctx, msg.Voice.FileID)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	transcript, err := b.speech.Transcriber.Transcribe(ctx, bytes.NewReader(audio), "voice_message.ogg")
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.sendPlain(ctx, chatID, "Recognized message:\n"+transcript)

	reply, err := b.rtr.Ask(ctx, chatKey(chatID), transcript)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}

	if speech, err := b.speech.Synthesizer.Synthesize(ctx, reply); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("speech synthesis failed")
	} else {
		voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "voice_answer.ogg", Bytes: speech})
		if _, err := b.api.Send(voice); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("send voice reply failed")
		}
	}

	b.sendReply(ctx, chatID, reply)
}

// handlePhoto routes the largest resolution of the photo with its caption
// through the multimodal path. Bypasses the session policy.
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	b.typing(chatID)

	photo := msg.Photo[len(msg.Photo)-1]
	data, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}

	caption := msg.Caption
	if caption == "" {
		caption = defaultPhotoCaption
	}

	reply, err := b.rtr.AskWithImage(ctx, chatKey(chatID), caption, data, "image/jpeg")
	if err != nil {
		b.sendError(ctx, chatID, err)
		return
	}
	b.sendReply(ctx, chatID, reply)
}
