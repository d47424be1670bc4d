// Package feedback persists rated images and their generation metadata.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Rating is the user's verdict on a generated image. The values are the
// labels written to the log.
type Rating string

const (
	Positive Rating = "Dobrze"
	Negative Rating = "Źle"
)

// TimestampLayout formats record timestamps and image filenames.
const TimestampLayout = "20060102_150405"

// Valid reports whether r is one of the known ratings.
func (r Rating) Valid() bool {
	return r == Positive || r == Negative
}

// ParseRating accepts the log labels and a few common aliases.
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dobrze", "good", "positive", "up", "+", "👍":
		return Positive, nil
	case "źle", "zle", "bad", "negative", "down", "-", "👎":
		return Negative, nil
	}
	return "", fmt.Errorf("unknown rating %q (use good or bad)", s)
}

// Entry is what the caller knows about a generation when it is rated.
type Entry struct {
	SourceText       string
	SystemPrompt     string
	Style            string
	TextTemperature  float64
	ImageTemperature float64
	Reasoning        string
	FinalPrompt      string
	Rating           Rating
	Comments         string
}

// Record is one committed line of the feedback log.
type Record struct {
	Timestamp     time.Time
	ImageFilename string
	Entry
}

// ImageFilename names the image file written for a commit at ts.
func ImageFilename(ts time.Time) string {
	return "etr_image_" + ts.Format(TimestampLayout) + ".png"
}

// Log is an append-only feedback store.
type Log interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}
