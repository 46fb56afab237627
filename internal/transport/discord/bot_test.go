package discord

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/service/pipeline"
)

type sent struct {
	channelID string
	content   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeSender) Send(channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{channelID, content})
	return nil
}

type fakeDispatcher struct {
	events   []models.VoiceEvent
	repliers []pipeline.Replier
}

func (f *fakeDispatcher) Dispatch(_ context.Context, ev models.VoiceEvent, r pipeline.Replier) error {
	f.events = append(f.events, ev)
	f.repliers = append(f.repliers, r)
	return nil
}

func message(channel string, bot bool, atts ...*discordgo.MessageAttachment) *discordgo.Message {
	return &discordgo.Message{
		ChannelID:   channel,
		Author:      &discordgo.User{ID: "u-1", Bot: bot},
		Attachments: atts,
	}
}

var voiceNote = &discordgo.MessageAttachment{
	URL:         "https://cdn.example/voice-message.ogg",
	Filename:    "voice-message.ogg",
	ContentType: "audio/ogg",
}

func TestHandle(t *testing.T) {
	image := &discordgo.MessageAttachment{URL: "https://cdn.example/a.png", ContentType: "image/png"}
	mp3 := &discordgo.MessageAttachment{URL: "https://cdn.example/a.mp3", ContentType: "audio/mpeg"}
	opus := &discordgo.MessageAttachment{URL: "https://cdn.example/b.ogg", ContentType: "audio/ogg; codecs=opus"}

	tests := []struct {
		name      string
		channelID string
		msg       *discordgo.Message
		want      int
	}{
		{name: "voice attachment", msg: message("c1", false, voiceNote), want: 1},
		{name: "image only", msg: message("c1", false, image), want: 0},
		{name: "mp3 only", msg: message("c1", false, mp3), want: 0},
		{name: "ogg with codec parameter", msg: message("c1", false, opus), want: 1},
		{name: "mp3 then voice", msg: message("c1", false, mp3, voiceNote), want: 1},
		{name: "from bot", msg: message("c1", true, voiceNote), want: 0},
		{name: "other channel", channelID: "c2", msg: message("c1", false, voiceNote), want: 0},
		{name: "configured channel", channelID: "c1", msg: message("c1", false, image, voiceNote), want: 1},
		{name: "no author", msg: &discordgo.Message{ChannelID: "c1", Attachments: []*discordgo.MessageAttachment{voiceNote}}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			b := newWithSender(&fakeSender{}, d, Config{ChannelID: tt.channelID})
			b.handle(tt.msg)
			if len(d.events) != tt.want {
				t.Fatalf("dispatched %d events, want %d", len(d.events), tt.want)
			}
			if tt.want == 1 && d.events[0].SubmitterID != "u-1" {
				t.Errorf("SubmitterID = %q", d.events[0].SubmitterID)
			}
		})
	}
}

func TestReplierPostsToChannel(t *testing.T) {
	s := &fakeSender{}
	d := &fakeDispatcher{}
	b := newWithSender(s, d, Config{})

	b.handle(message("c9", false, voiceNote))
	if err := d.repliers[0].Reply(context.Background(), "🎧 Escuchando..."); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].channelID != "c9" || s.sent[0].content != "🎧 Escuchando..." {
		t.Errorf("sent = %+v", s.sent)
	}
}

func TestRunWithoutSession(t *testing.T) {
	b := newWithSender(&fakeSender{}, &fakeDispatcher{}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Run(ctx); err != nil {
		t.Errorf("Run = %v", err)
	}
}
