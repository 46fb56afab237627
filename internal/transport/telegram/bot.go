// Package telegram receives voice notes through Bot API long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/service/audio"
	"voice-ledger-service/internal/service/pipeline"
	"voice-ledger-service/internal/transport"
)

// DefaultPollTimeout is the long polling timeout in seconds.
const DefaultPollTimeout = 60

// Config holds the Telegram bot settings.
type Config struct {
	Token       string
	PollTimeout int
	// Client downloads voice files; nil uses http.DefaultClient.
	Client *http.Client
}

// botAPI is the subset of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot forwards voice messages to a dispatcher and replies in the same chat.
type Bot struct {
	api         botAPI
	dispatcher  transport.Dispatcher
	client      *http.Client
	pollTimeout int
	log         zerolog.Logger
}

// New authenticates against the Bot API.
func New(cfg Config, d transport.Dispatcher) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: token is required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	b := newWithAPI(api, d, cfg)
	b.log.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")
	return b, nil
}

func newWithAPI(api botAPI, d transport.Dispatcher, cfg Config) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	return &Bot{
		api:         api,
		dispatcher:  d,
		client:      cfg.Client,
		pollTimeout: cfg.PollTimeout,
		log:         logging.WithComponent("telegram"),
	}
}

// Name implements transport.Transport.
func (b *Bot) Name() string { return "telegram" }

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.log.Info().Int("pollTimeout", b.pollTimeout).Msg("Polling for voice messages")
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handle(ctx, upd)
		}
	}
}

// Close implements transport.Transport. Polling stops when Run returns.
func (b *Bot) Close() error { return nil }

func (b *Bot) handle(ctx context.Context, upd tgbotapi.Update) {
	ev, chatID, ok := b.eventFor(upd)
	if !ok {
		return
	}
	if err := b.dispatcher.Dispatch(ctx, ev, b.replier(chatID)); err != nil {
		b.log.Error().Err(err).Str("submitterId", ev.SubmitterID).Msg("Failed to dispatch voice message")
	}
}

// eventFor accepts voice notes only.
func (b *Bot) eventFor(upd tgbotapi.Update) (models.VoiceEvent, int64, bool) {
	msg := upd.Message
	if msg == nil || msg.Voice == nil || msg.Chat == nil {
		return models.VoiceEvent{}, 0, false
	}

	chatID := msg.Chat.ID
	submitter := strconv.FormatInt(chatID, 10)
	if msg.From != nil {
		submitter = strconv.FormatInt(msg.From.ID, 10)
	}

	return models.VoiceEvent{
		SubmitterID: submitter,
		ChatID:      strconv.FormatInt(chatID, 10),
		Audio:       voiceSource{api: b.api, fileID: msg.Voice.FileID, client: b.client},
	}, chatID, true
}

func (b *Bot) replier(chatID int64) pipeline.Replier {
	return pipeline.ReplierFunc(func(_ context.Context, text string) error {
		_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
		return err
	})
}

// voiceSource resolves the file URL lazily so it is fetched inside the run.
type voiceSource struct {
	api    botAPI
	fileID string
	client *http.Client
}

func (v voiceSource) Fetch(ctx context.Context, w io.Writer) error {
	url, err := v.api.GetFileDirectURL(v.fileID)
	if err != nil {
		return fmt.Errorf("telegram: resolve file %s: %w", v.fileID, err)
	}
	return audio.URLSource{URL: url, Client: v.client}.Fetch(ctx, w)
}

var _ transport.Transport = (*Bot)(nil)
