package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries runs the typed feedback statements against a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Feedback is one row of the feedback table.
type Feedback struct {
	ID               int64
	RecordedAt       string
	SourceText       string
	SystemPrompt     string
	Style            string
	TextTemperature  float64
	ImageTemperature float64
	Reasoning        string
	FinalPrompt      string
	ImageFilename    string
	Rating           string
	Comments         string
}

// RatingCount is the number of feedback rows carrying one rating.
type RatingCount struct {
	Rating string
	Count  int64
}
