package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"voice-ledger-service/internal/app"
	"voice-ledger-service/internal/config"
	"voice-ledger-service/internal/events"
	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/observability"
	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/observability/metrics"
	"voice-ledger-service/internal/service/audio"
	"voice-ledger-service/internal/service/pipeline"
)

// Version is set at build time.
var Version = "dev"

// Flags holds the command-line options shared by all commands.
type Flags struct {
	CfgFile  string
	Contract string
	Mock     bool
	DryRun   bool
	GroupID  string
	Listen   string
}

// NewFlags returns flags with their defaults.
func NewFlags() *Flags {
	return &Flags{}
}

// CreateRootCommand creates the root command. Without a subcommand it serves.
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voice-ledger",
		Short: "Voice notes to a ledger spreadsheet",
		Long: `voice-ledger turns Spanish voice notes into ledger rows.

Each voice message is transcribed, classified as a note or a transaction,
validated and appended to the configured spreadsheet tab.

Examples:
  voice-ledger                              # serve (default)
  voice-ledger process nota.ogg --dry-run   # run one clip, keep rows in memory
  voice-ledger classify "pagué 25 mil de almuerzo"
  voice-ledger tail                         # follow stored-record events`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "YAML config file (env vars still override it)")
	rootCmd.PersistentFlags().StringVar(&flags.Contract, "contract", "", "classifier contract version: v1 or v2")
	rootCmd.PersistentFlags().BoolVar(&flags.Mock, "mock", false, "use the mock STT and classifier providers")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newProcessCommand(flags),
		newClassifyCommand(flags),
		newTailCommand(flags),
	)
	return rootCmd
}

// loadConfig applies flag overrides on top of file and environment.
func loadConfig(flags *Flags) (*config.Configuration, error) {
	cfg, err := config.LoadFile(flags.CfgFile)
	if err != nil {
		return nil, err
	}
	if flags.Contract != "" {
		cfg.Contract.Version = strings.ToLower(flags.Contract)
	}
	if flags.Mock {
		cfg.STT.Provider = "mock"
		cfg.Classifier.Provider = "mock"
	}
	if flags.DryRun {
		cfg.Store.Backend = "memory"
	}
	return cfg, nil
}

// initCLILogging keeps command output on stdout and logs on stderr.
func initCLILogging(cmd *cobra.Command, cfg *config.Configuration) {
	level := cfg.Log.Level
	if level == "" || level == "info" {
		level = "warn"
	}
	logging.InitWriter(logging.Config{Level: level, Format: "console", TimeFormat: time.RFC3339}, cmd.ErrOrStderr())
}

func newServeCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the keep-alive HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
}

func runServe(cmd *cobra.Command, flags *Flags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	return a.Start(ctx)
}

func newProcessCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <audio-file>",
		Short: "Run one clip through the pipeline and print the replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			initCLILogging(cmd, cfg)

			c, err := app.BuildComponents(cmd.Context(), cfg, metrics.DefaultMetrics)
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			r := pipeline.ReplierFunc(func(_ context.Context, text string) error {
				_, err := fmt.Fprintln(out, text)
				return err
			})

			outcome := c.Pipeline.Run(cmd.Context(), models.VoiceEvent{
				SubmitterID: "cli",
				ChatID:      "stdout",
				Audio:       audio.FileSource{Path: args[0]},
			}, r)
			fmt.Fprintf(out, "outcome: %s\n", outcome)
			if !outcome.Saved() {
				return fmt.Errorf("run ended with %s", outcome)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "keep rows in memory instead of the configured store")
	return cmd
}

func newClassifyCommand(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a transcript and show the parsed record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			initCLILogging(cmd, cfg)

			contract, tax, parser, err := app.BuildParser(cfg)
			if err != nil {
				return err
			}
			classifier, err := app.BuildClassifier(cfg, contract)
			if err != nil {
				return err
			}

			transcript := strings.Join(args, " ")
			raw, err := classifier.Classify(cmd.Context(), transcript, tax)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "raw: %s\n", raw)
			rec, err := parser.Parse(raw)
			if err != nil {
				return err
			}
			printRecord(out, rec)
			return nil
		},
	}
}

func printRecord(w io.Writer, rec models.Record) {
	switch r := rec.(type) {
	case *models.Note:
		fmt.Fprintf(w, "kind: %s\ncontent: %s\n", r.Kind(), r.Content)
	case *models.Transaction:
		fmt.Fprintf(w, "kind: %s\ntype: %s\ncontext: %s\ncategory: %s\namount: %d\ndescription: %s\n",
			r.Kind(), r.Type, r.Context, r.Category, r.Amount, r.Description)
		if r.HasInvoiceField {
			fmt.Fprintf(w, "invoice: %s\n", r.Invoice)
		}
	}
}

func newTailCommand(flags *Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print stored-record events from Kafka as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			initCLILogging(cmd, cfg)

			consumer, err := events.NewConsumer(events.ConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				Topics:  []string{cfg.Kafka.TopicTransactions, cfg.Kafka.TopicNotes},
				GroupID: flags.GroupID,
			})
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var hub *events.Hub
			if flags.Listen != "" {
				hub = events.NewHub()
				go hub.Run(ctx)

				r := chi.NewRouter()
				r.Handle("/ws", hub)
				srv := observability.NewServer(flags.Listen, r)
				srv.Start()
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
				fmt.Fprintf(cmd.ErrOrStderr(), "viewer feed on ws://%s/ws\n", flags.Listen)
			}

			out := cmd.OutOrStdout()
			err = consumer.Run(ctx, func(ev models.RecordStored) error {
				if hub != nil {
					hub.Publish(ev)
				}
				_, err := fmt.Fprintln(out, FormatEvent(ev))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&flags.GroupID, "group", "", "consumer group id (default: a fresh group per invocation)")
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "also stream events to WebSocket viewers on this address, e.g. :8081")
	return cmd
}

// FormatEvent renders one event as a single line.
func FormatEvent(ev models.RecordStored) string {
	ts := time.UnixMilli(ev.Timestamp).Format(time.RFC3339)
	return fmt.Sprintf("%s %-28s %-10s %s: %s", ts, ev.EventType, ev.Tab, ev.SubmitterID, strings.Join(ev.Values, " | "))
}
