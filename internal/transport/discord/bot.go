// Package discord receives voice messages posted as audio attachments.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/service/audio"
	"voice-ledger-service/internal/service/pipeline"
	"voice-ledger-service/internal/transport"
)

// voiceContentType is what Discord reports for recorded voice messages.
const voiceContentType = "audio/ogg"

// Config holds the Discord bot settings.
type Config struct {
	Token string
	// ChannelID restricts the bot to one channel when set.
	ChannelID string
	Client    *http.Client
}

// sender posts a plain text message to a channel.
type sender interface {
	Send(channelID, content string) error
}

type sessionSender struct {
	session *discordgo.Session
}

func (s sessionSender) Send(channelID, content string) error {
	_, err := s.session.ChannelMessageSend(channelID, content)
	return err
}

// Bot forwards audio attachments to a dispatcher.
type Bot struct {
	session    *discordgo.Session
	sender     sender
	dispatcher transport.Dispatcher
	channelID  string
	client     *http.Client
	log        zerolog.Logger

	mu        sync.Mutex
	ctx       context.Context
	closeOnce sync.Once
}

// New creates the gateway session. The connection is opened by Run.
func New(cfg Config, d transport.Dispatcher) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := newWithSender(sessionSender{session: session}, d, cfg)
	b.session = session
	session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.handle(m.Message)
	})
	return b, nil
}

func newWithSender(s sender, d transport.Dispatcher, cfg Config) *Bot {
	return &Bot{
		sender:     s,
		dispatcher: d,
		channelID:  cfg.ChannelID,
		client:     cfg.Client,
		log:        logging.WithComponent("discord"),
		ctx:        context.Background(),
	}
}

// Name implements transport.Transport.
func (b *Bot) Name() string { return "discord" }

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if b.session != nil {
		if err := b.session.Open(); err != nil {
			return fmt.Errorf("discord: open session: %w", err)
		}
		b.log.Info().Str("channelId", b.channelID).Msg("Discord gateway connected")
	}

	<-ctx.Done()
	return b.Close()
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		if b.session != nil {
			if err := b.session.Close(); err != nil {
				closeErr = fmt.Errorf("discord: close session: %w", err)
			}
		}
	})
	return closeErr
}

func (b *Bot) handle(m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if b.channelID != "" && m.ChannelID != b.channelID {
		return
	}
	att := VoiceAttachment(m)
	if att == nil {
		return
	}

	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	ev := models.VoiceEvent{
		SubmitterID: m.Author.ID,
		ChatID:      m.ChannelID,
		Audio:       audio.URLSource{URL: att.URL, Client: b.client},
	}
	if err := b.dispatcher.Dispatch(ctx, ev, b.replier(m.ChannelID)); err != nil {
		b.log.Error().Err(err).Str("submitterId", ev.SubmitterID).Msg("Failed to dispatch voice message")
	}
}

func (b *Bot) replier(channelID string) pipeline.Replier {
	return pipeline.ReplierFunc(func(_ context.Context, text string) error {
		return b.sender.Send(channelID, text)
	})
}

// VoiceAttachment returns the first Ogg audio attachment of m, or nil.
// Clips are staged and transcribed as Ogg, so other audio formats are ignored.
func VoiceAttachment(m *discordgo.Message) *discordgo.MessageAttachment {
	for _, a := range m.Attachments {
		if a != nil && strings.HasPrefix(strings.ToLower(a.ContentType), voiceContentType) {
			return a
		}
	}
	return nil
}

var _ transport.Transport = (*Bot)(nil)
