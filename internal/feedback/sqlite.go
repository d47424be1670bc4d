package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/abdulachik/etrimage/internal/db"
)

// SQLiteLog stores feedback records in the SQLite feedback table.
type SQLiteLog struct {
	store *db.Store
}

// NewSQLiteLog wraps an open, migrated store. Close closes the store.
func NewSQLiteLog(store *db.Store) *SQLiteLog {
	return &SQLiteLog{store: store}
}

func (l *SQLiteLog) Append(ctx context.Context, rec Record) error {
	_, err := l.store.InsertFeedback(ctx, db.InsertFeedbackParams{
		RecordedAt:       rec.Timestamp.Format(TimestampLayout),
		SourceText:       rec.SourceText,
		SystemPrompt:     rec.SystemPrompt,
		Style:            rec.Style,
		TextTemperature:  rec.TextTemperature,
		ImageTemperature: rec.ImageTemperature,
		Reasoning:        rec.Reasoning,
		FinalPrompt:      rec.FinalPrompt,
		ImageFilename:    rec.ImageFilename,
		Rating:           string(rec.Rating),
		Comments:         rec.Comments,
	})
	return err
}

func (l *SQLiteLog) List(ctx context.Context) ([]Record, error) {
	rows, err := l.store.ListFeedback(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		ts, err := time.ParseInLocation(TimestampLayout, row.RecordedAt, time.Local)
		if err != nil {
			return nil, fmt.Errorf("feedback %d: parse timestamp: %w", row.ID, err)
		}
		records = append(records, Record{
			Timestamp:     ts,
			ImageFilename: row.ImageFilename,
			Entry: Entry{
				SourceText:       row.SourceText,
				SystemPrompt:     row.SystemPrompt,
				Style:            row.Style,
				TextTemperature:  row.TextTemperature,
				ImageTemperature: row.ImageTemperature,
				Reasoning:        row.Reasoning,
				FinalPrompt:      row.FinalPrompt,
				Rating:           Rating(row.Rating),
				Comments:         row.Comments,
			},
		})
	}
	return records, nil
}

func (l *SQLiteLog) Close() error {
	return l.store.Close()
}
