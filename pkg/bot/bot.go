// Package bot wires the Telegram front-end to the conversation router:
// update polling, command dispatch, the stale-session prompt, and the
// voice/photo media paths.
package bot

import (
	"context"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatrelay/chatrelay/pkg/chunker"
	"github.com/chatrelay/chatrelay/pkg/providers"
	"github.com/chatrelay/chatrelay/pkg/router"
	"github.com/chatrelay/chatrelay/pkg/session"
)

const pollTimeoutSeconds = 30

// Speech bundles the optional audio capabilities; both sides are served by
// the openai adapter when that family is configured.
type Speech struct {
	Transcriber providers.Transcriber
	Synthesizer providers.SpeechSynthesizer
}

// Config carries the bot's collaborators; Router and Policy are required.
type Config struct {
	Token             string
	Router            *router.Router
	Policy            *session.Policy
	Speech            Speech
	SegmentLimit      int
	DefaultImageModel string
}

// Bot runs the long-polling loop. Each update is handled on its own
// goroutine as one synchronous call chain; overlapping updates for the
// same chat are not serialized (last save wins, accepted).
type Bot struct {
	api          *tgbotapi.BotAPI
	rtr          *router.Router
	policy       *session.Policy
	speech       Speech
	segmentLimit int
	imageModel   string
	files        *http.Client
}

func New(cfg Config) (*Bot, error) {
	if cfg.Router == nil {
		return nil, errors.New("bot: router is nil")
	}
	if cfg.Policy == nil {
		return nil, errors.New("bot: session policy is nil")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "bot: telegram login")
	}
	limit := cfg.SegmentLimit
	if limit <= 0 {
		limit = chunker.DefaultSegmentLimit
	}
	imageModel := cfg.DefaultImageModel
	if imageModel == "" {
		imageModel = "dall-e-2"
	}
	return &Bot{
		api:          api,
		rtr:          cfg.Router,
		policy:       cfg.Policy,
		speech:       cfg.Speech,
		segmentLimit: limit,
		imageModel:   imageModel,
		files:        &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	log.Info().Str("username", b.api.Self.UserName).Msg("telegram bot started")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate is the top-level event boundary: every failure below it is
// converted into a user-visible reply and a log line, never a crash.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	logger := log.With().Str("update_id", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message == nil:
		// edits, channel posts and other update kinds are ignored
	case update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message.Voice != nil:
		b.handleVoice(ctx, update.Message)
	case len(update.Message.Photo) > 0:
		b.handlePhoto(ctx, update.Message)
	case update.Message.Text != "":
		b.handleText(ctx, update.Message)
	}
}

func (b *Bot) typing(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("chat action failed")
	}
}

// sendReply chunks a model reply into MarkdownV2 segments and sends them in
// order.
func (b *Bot) sendReply(ctx context.Context, chatID int64, reply string) {
	for _, segment := range chunker.Split(reply, b.segmentLimit) {
		msg := tgbotapi.NewMessage(chatID, segment)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		if _, err := b.api.Send(msg); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("send reply segment failed")
			return
		}
	}
}

// sendPlain sends an unformatted notice.
func (b *Bot) sendPlain(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

// sendError converts any inner failure into a single user-visible
// diagnostic. Modality and validation failures read as notices, everything
// else as an error reply.
func (b *Bot) sendError(ctx context.Context, chatID int64, err error) {
	logger := zerolog.Ctx(ctx)
	var verr *router.ValidationError
	switch {
	case providers.IsUnsupportedModality(err):
		logger.Info().Err(err).Msg("modality rejected")
		b.sendPlain(ctx, chatID, "The selected model does not support this content type")
	case errors.As(err, &verr):
		logger.Info().Err(err).Msg("request rejected")
		b.sendPlain(ctx, chatID, verr.Message())
	default:
		logger.Error().Err(err).Msg("message handling failed")
		b.sendPlain(ctx, chatID, "Error while processing the message: "+err.Error())
	}
}

// downloadFile fetches a Telegram-hosted file by its file ID.
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve file url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build file request")
	}
	resp, err := b.files.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download file")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read file body")
	}
	return data, nil
}
