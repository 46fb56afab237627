// Package pipeline runs one voice event end to end: staging, transcription,
// classification, parsing, persistence and the reply.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/observability/metrics"
	"voice-ledger-service/internal/schema"
	"voice-ledger-service/internal/service/audio"
	"voice-ledger-service/internal/service/classify"
	"voice-ledger-service/internal/service/run"
	"voice-ledger-service/internal/service/stt"
	"voice-ledger-service/internal/service/taxonomy"
	"voice-ledger-service/internal/storage"
)

// Publisher receives an event for every stored row.
type Publisher interface {
	PublishRecord(ctx context.Context, ev models.RecordStored) error
}

// Config holds the per-run knobs.
type Config struct {
	Tabs               Tabs
	Location           *time.Location
	MinTranscriptChars int
	StageTimeout       time.Duration
	LanguageHint       string
	// StorageLabel names the backend in the storage-unavailable reply.
	StorageLabel string
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		Tabs:               Tabs{Notes: "Notas", Records: "Registros"},
		Location:           time.UTC,
		MinTranscriptChars: 2,
		StageTimeout:       60 * time.Second,
		LanguageHint:       "es",
		StorageLabel:       "Google Sheets",
	}
}

// Deps are the collaborators of a pipeline. Publisher and Metrics are optional.
type Deps struct {
	Stager      *audio.Stager
	Transcriber stt.Transcriber
	Classifier  classify.Classifier
	Taxonomy    *taxonomy.Taxonomy
	Parser      *schema.Parser
	Store       storage.Appender
	Publisher   Publisher
	Metrics     *metrics.Metrics
}

// Pipeline is safe for concurrent use; every Run owns its own state.
type Pipeline struct {
	deps Deps
	cfg  Config
	ids  *run.Generator
	now  func() time.Time
}

// New validates deps and fills config defaults.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	switch {
	case deps.Stager == nil:
		return nil, errors.New("pipeline: stager is required")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case deps.Classifier == nil:
		return nil, errors.New("pipeline: classifier is required")
	case deps.Parser == nil:
		return nil, errors.New("pipeline: parser is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	}
	if deps.Taxonomy == nil {
		deps.Taxonomy = taxonomy.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}

	def := DefaultConfig()
	if cfg.Tabs.Notes == "" {
		cfg.Tabs.Notes = def.Tabs.Notes
	}
	if cfg.Tabs.Records == "" {
		cfg.Tabs.Records = def.Tabs.Records
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.MinTranscriptChars <= 0 {
		cfg.MinTranscriptChars = def.MinTranscriptChars
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = def.StageTimeout
	}
	if cfg.StorageLabel == "" {
		cfg.StorageLabel = def.StorageLabel
	}

	return &Pipeline{
		deps: deps,
		cfg:  cfg,
		ids:  run.NewGenerator(),
		now:  time.Now,
	}, nil
}

// result is what a run has to say once it stops.
type result struct {
	outcome Outcome
	reply   string
	err     error
}

// Run processes ev and sends exactly one terminal reply through r, preceded
// by an acknowledgement. Staged audio is released after the reply on every path.
func (p *Pipeline) Run(ctx context.Context, ev models.VoiceEvent, r Replier) Outcome {
	start := time.Now()
	runID := p.ids.Next(ev.SubmitterID)
	lc := run.NewLifecycle(runID)
	log := logging.WithRun(runID, ev.SubmitterID)

	p.deps.Metrics.RecordRunStart()
	log.Info().Str("chatId", ev.ChatID).Msg("Run started")

	p.send(ctx, log, r, MsgAck)

	var staged *audio.Staged
	defer func() {
		if staged != nil {
			if err := staged.Release(); err != nil {
				log.Warn().Err(err).Str("path", staged.Path()).Msg("Failed to release staged audio")
			}
		}
	}()

	res := p.execute(ctx, lc, ev, log, &staged)

	if res.err != nil {
		failed := lc.State()
		_ = lc.Fail()
		p.deps.Metrics.RecordStageFailure(failed.Stage())
		log.Warn().Err(res.err).Str("stage", failed.Stage()).Str("outcome", res.outcome.String()).Msg("Run failed")
	} else {
		_ = lc.Advance(run.StateResponding)
	}

	p.send(ctx, log, r, res.reply)
	_ = lc.Finish()

	elapsed := time.Since(start)
	p.deps.Metrics.RecordRunEnd(res.outcome.String(), elapsed.Seconds())
	log.Info().Str("outcome", res.outcome.String()).Dur("elapsed", elapsed).Msg("Run finished")
	return res.outcome
}

func (p *Pipeline) execute(ctx context.Context, lc *run.Lifecycle, ev models.VoiceEvent, log zerolog.Logger, staged **audio.Staged) result {
	// Acquire
	err := p.stage(ctx, lc, run.StateAcquiring, func(sctx context.Context) error {
		s, err := p.deps.Stager.Stage(sctx, lc.RunID(), ev.Audio)
		if err != nil {
			return err
		}
		*staged = s
		return nil
	})
	if err != nil {
		return failure(fmt.Errorf("%w: %w", ErrStaging, err))
	}

	// Transcribe
	var transcript string
	err = p.stage(ctx, lc, run.StateTranscribing, func(sctx context.Context) error {
		text, err := p.deps.Transcriber.Transcribe(sctx, (*staged).Path(), p.cfg.LanguageHint)
		transcript = text
		return err
	})
	if err != nil {
		return failure(fmt.Errorf("%w: %w", ErrTranscription, err))
	}
	transcript = strings.TrimSpace(transcript)
	if len([]rune(transcript)) < p.cfg.MinTranscriptChars {
		return result{
			outcome: OutcomeEmptyTranscript,
			reply:   MsgEmptyTranscript,
			err:     fmt.Errorf("%w: transcript too short (%d chars)", ErrTranscription, len([]rune(transcript))),
		}
	}
	log.Debug().Str("transcript", transcript).Msg("Transcribed")

	// Classify
	var raw string
	err = p.stage(ctx, lc, run.StateClassifying, func(sctx context.Context) error {
		out, err := p.deps.Classifier.Classify(sctx, transcript, p.deps.Taxonomy)
		raw = classify.Clean(out)
		return err
	})
	if err != nil {
		return failure(fmt.Errorf("%w: %w", ErrClassification, err))
	}
	log.Debug().Str("raw", raw).Msg("Classified")

	// Parse
	var rec models.Record
	err = p.stage(ctx, lc, run.StateParsing, func(context.Context) error {
		var err error
		rec, err = p.deps.Parser.Parse(raw)
		return err
	})
	if err != nil {
		var perr *schema.ParseError
		if errors.As(err, &perr) {
			p.deps.Metrics.RecordParseFailure(string(perr.Reason))
		}
		return result{outcome: OutcomeStructuringFailed, reply: StructuringFailedReply(raw), err: err}
	}

	// Persist
	at := p.now().In(p.cfg.Location)
	row := BuildRow(rec, p.cfg.Tabs, at)
	var stored bool
	_ = p.stage(ctx, lc, run.StatePersisting, func(sctx context.Context) error {
		stored = p.deps.Store.Append(sctx, row.Tab, row.Values)
		return nil
	})
	if !stored {
		return result{
			outcome: OutcomeStorageUnavailable,
			reply:   StorageUnavailableReply(p.cfg.StorageLabel),
			err:     fmt.Errorf("append to %q failed", row.Tab),
		}
	}

	p.publish(ctx, log, eventFor(rec, row, lc.RunID(), ev.SubmitterID, at))

	if rec.Kind() == models.RecordNote {
		return result{outcome: OutcomeNoteSaved, reply: MsgNoteSaved}
	}
	return result{outcome: OutcomeTransactionSaved, reply: TransactionReply(row)}
}

// stage advances the lifecycle and runs fn under the stage timeout.
func (p *Pipeline) stage(ctx context.Context, lc *run.Lifecycle, st run.State, fn func(context.Context) error) error {
	if err := lc.Advance(st); err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	start := time.Now()
	err := fn(sctx)
	p.deps.Metrics.RecordStage(st.Stage(), time.Since(start).Seconds())

	if err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s: %w", ErrTimeout, st.Stage(), p.cfg.StageTimeout, err)
	}
	return err
}

func (p *Pipeline) publish(ctx context.Context, log zerolog.Logger, ev models.RecordStored) {
	if p.deps.Publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.StageTimeout)
	defer cancel()
	if err := p.deps.Publisher.PublishRecord(pctx, ev); err != nil {
		log.Warn().Err(err).Str("eventType", ev.EventType).Msg("Failed to publish record event")
	}
}

func (p *Pipeline) send(ctx context.Context, log zerolog.Logger, r Replier, text string) {
	if r == nil {
		return
	}
	if err := r.Reply(context.WithoutCancel(ctx), text); err != nil {
		log.Warn().Err(err).Msg("Failed to send reply")
	}
}

func failure(err error) result {
	return result{outcome: OutcomeFailed, reply: ErrorReply(err), err: err}
}
