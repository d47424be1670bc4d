package db

import (
	"context"
	"fmt"
)

const feedbackColumns = `id, recorded_at, source_text, system_prompt, style, text_temperature,
	image_temperature, reasoning, final_prompt, image_filename, rating, comments`

const insertFeedback = `INSERT INTO feedback (
	recorded_at, source_text, system_prompt, style, text_temperature,
	image_temperature, reasoning, final_prompt, image_filename, rating, comments
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + feedbackColumns

// InsertFeedbackParams holds the values for one feedback row.
type InsertFeedbackParams struct {
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

func (q *Queries) InsertFeedback(ctx context.Context, arg InsertFeedbackParams) (Feedback, error) {
	row := q.db.QueryRowContext(ctx, insertFeedback,
		arg.RecordedAt,
		arg.SourceText,
		arg.SystemPrompt,
		arg.Style,
		arg.TextTemperature,
		arg.ImageTemperature,
		arg.Reasoning,
		arg.FinalPrompt,
		arg.ImageFilename,
		arg.Rating,
		arg.Comments,
	)
	var f Feedback
	if err := scanFeedback(row, &f); err != nil {
		return Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return f, nil
}

const listFeedback = `SELECT ` + feedbackColumns + `
FROM feedback
ORDER BY id ASC`

// ListFeedback returns every row in insertion order.
func (q *Queries) ListFeedback(ctx context.Context) ([]Feedback, error) {
	rows, err := q.db.QueryContext(ctx, listFeedback)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var items []Feedback
	for rows.Next() {
		var f Feedback
		if err := scanFeedback(rows, &f); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return items, nil
}

const countFeedback = `SELECT COUNT(*) FROM feedback`

func (q *Queries) CountFeedback(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countFeedback).Scan(&count)
	return count, err
}

const countFeedbackByRating = `SELECT rating, COUNT(*) FROM feedback
GROUP BY rating
ORDER BY rating`

func (q *Queries) CountFeedbackByRating(ctx context.Context) ([]RatingCount, error) {
	rows, err := q.db.QueryContext(ctx, countFeedbackByRating)
	if err != nil {
		return nil, fmt.Errorf("count feedback by rating: %w", err)
	}
	defer rows.Close()

	var items []RatingCount
	for rows.Next() {
		var rc RatingCount
		if err := rows.Scan(&rc.Rating, &rc.Count); err != nil {
			return nil, err
		}
		items = append(items, rc)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFeedback(s scanner, f *Feedback) error {
	return s.Scan(
		&f.ID,
		&f.RecordedAt,
		&f.SourceText,
		&f.SystemPrompt,
		&f.Style,
		&f.TextTemperature,
		&f.ImageTemperature,
		&f.Reasoning,
		&f.FinalPrompt,
		&f.ImageFilename,
		&f.Rating,
		&f.Comments,
	)
}
