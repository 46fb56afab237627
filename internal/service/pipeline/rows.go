package pipeline

import (
	"strconv"
	"time"

	"voice-ledger-service/internal/models"
	"voice-ledger-service/internal/service/normalize"
)

// TimestampLayout is the fixed format of the first column of every row.
const TimestampLayout = "2006-01-02 15:04:05"

// Tabs names the two destination tabs.
type Tabs struct {
	Notes   string
	Records string
}

// BuildRow lays out a record as a stored row. Text fields are normalized.
func BuildRow(rec models.Record, tabs Tabs, at time.Time) models.StoredRow {
	ts := at.Format(TimestampLayout)

	switch r := rec.(type) {
	case *models.Note:
		return models.StoredRow{
			Tab:    tabs.Notes,
			Values: []string{ts, normalize.Text(r.Content)},
		}
	case *models.Transaction:
		values := []string{
			ts,
			normalize.Text(string(r.Type)),
			normalize.Text(r.Context),
			normalize.Text(r.Category),
			strconv.FormatInt(r.Amount, 10),
			normalize.Text(r.Description),
		}
		if r.HasInvoiceField {
			values = append(values, normalize.Text(r.Invoice))
		}
		return models.StoredRow{Tab: tabs.Records, Values: values}
	default:
		return models.StoredRow{}
	}
}

// eventFor builds the event published after row was stored.
func eventFor(rec models.Record, row models.StoredRow, runID, submitterID string, at time.Time) models.RecordStored {
	eventType := models.EventTransactionRecorded
	if rec.Kind() == models.RecordNote {
		eventType = models.EventNoteRecorded
	}
	return models.RecordStored{
		EventType:   eventType,
		RunID:       runID,
		SubmitterID: submitterID,
		Tab:         row.Tab,
		Values:      row.Values,
		Timestamp:   at.UnixMilli(),
	}
}
