// Package sheets stores rows in a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"voice-ledger-service/internal/storage"
)

// Config identifies the spreadsheet and the service-account credentials.
// When SpreadsheetID is empty the spreadsheet is looked up by Name in Drive.
type Config struct {
	SpreadsheetID   string
	Name            string
	CredentialsJSON string // inline key, preferred over CredentialsFile
	CredentialsFile string
}

// Opener lazily creates one Sheets service and shares it between runs.
// A failed creation is retried on the next Open.
type Opener struct {
	cfg  Config
	opts []option.ClientOption

	mu  sync.Mutex
	svc *gsheets.Service
	id  string
}

// NewOpener creates an opener. Extra client options are appended after the
// credentials, which lets tests point the client at a local endpoint.
func NewOpener(cfg Config, opts ...option.ClientOption) (*Opener, error) {
	if cfg.SpreadsheetID == "" && cfg.Name == "" {
		return nil, errors.New("sheets: spreadsheet id or name must be set")
	}
	return &Opener{cfg: cfg, opts: opts, id: cfg.SpreadsheetID}, nil
}

// Open implements storage.Opener.
func (o *Opener) Open(ctx context.Context) (storage.Book, error) {
	svc, id, err := o.service(ctx)
	if err != nil {
		return nil, err
	}
	return &book{svc: svc, id: id}, nil
}

func (o *Opener) service(ctx context.Context) (*gsheets.Service, string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.svc != nil && o.id != "" {
		return o.svc, o.id, nil
	}

	opts, err := o.clientOptions()
	if err != nil {
		return nil, "", err
	}
	// The service outlives the run that created it.
	bg := context.WithoutCancel(ctx)

	if o.id == "" {
		id, err := lookupByName(ctx, bg, o.cfg.Name, opts)
		if err != nil {
			return nil, "", err
		}
		o.id = id
	}

	if o.svc == nil {
		svc, err := gsheets.NewService(bg, opts...)
		if err != nil {
			return nil, "", fmt.Errorf("sheets: create service: %w", err)
		}
		o.svc = svc
		log.Info().Str("spreadsheetId", o.id).Msg("Google Sheets service created")
	}
	return o.svc, o.id, nil
}

// lookupByName finds the most recently modified spreadsheet called name
// that the service account can see.
func lookupByName(ctx, bg context.Context, name string, opts []option.ClientOption) (string, error) {
	dsvc, err := drive.NewService(bg, opts...)
	if err != nil {
		return "", fmt.Errorf("sheets: create drive service: %w", err)
	}
	q := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`))
	list, err := dsvc.Files.List().
		Q(q).
		OrderBy("modifiedTime desc").
		PageSize(1).
		Fields("files(id,name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("sheets: find spreadsheet %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("sheets: spreadsheet %q not found", name)
	}
	log.Info().Str("name", name).Str("spreadsheetId", list.Files[0].Id).Msg("Spreadsheet resolved by name")
	return list.Files[0].Id, nil
}

func (o *Opener) clientOptions() ([]option.ClientOption, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope, drive.DriveReadonlyScope)}
	switch {
	case o.cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(o.cfg.CredentialsJSON)))
	case o.cfg.CredentialsFile != "":
		if _, err := os.Stat(o.cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("sheets: credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsFile(o.cfg.CredentialsFile))
	}
	return append(opts, o.opts...), nil
}

type book struct {
	svc *gsheets.Service
	id  string
}

// Tabs implements storage.Book.
func (b *book) Tabs(ctx context.Context) ([]string, error) {
	ss, err := b.svc.Spreadsheets.Get(b.id).
		Fields("sheets.properties(title,index)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		titles = append(titles, sh.Properties.Title)
	}
	return titles, nil
}

// AppendRow implements storage.Book.
func (b *book) AppendRow(ctx context.Context, tab string, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	_, err := b.svc.Spreadsheets.Values.
		Append(b.id, quoteRange(tab), &gsheets.ValueRange{Values: [][]interface{}{cells}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// quoteRange builds an A1 range that addresses a whole tab whatever its title.
func quoteRange(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
