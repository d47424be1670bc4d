package feedback

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// utf8BOM lets spreadsheet tools detect the encoding of Polish text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvColumns is the header of the feedback file. The first ten columns match
// files produced by earlier versions of the tool; style was added last.
var csvColumns = []string{
	"timestamp",
	"original_text",
	"used_system_prompt",
	"text_temperature",
	"image_temperature",
	"reasoning",
	"generated_prompt",
	"image_filename",
	"rating",
	"comments",
	"style",
}

// CSVLog appends feedback records to a CSV file.
type CSVLog struct {
	path string
}

// NewCSVLog returns a log backed by the file at path. The file is created on
// the first append.
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

// Path returns the CSV file location.
func (l *CSVLog) Path() string {
	return l.path
}

// Append writes rec as one row, writing the BOM and header first when the
// file is new or empty. A file with the shorter legacy header is upgraded
// before the row is added.
func (l *CSVLog) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}

	if err := l.upgradeHeader(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat feedback log: %w", err)
	}

	// Build the whole chunk first so a row is written with a single call.
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		buf.Write(utf8BOM)
		if err := w.Write(csvColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(recordToRow(rec)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write feedback log: %w", err)
	}
	return f.Sync()
}

// List reads all rows. A missing file is an empty log. Columns are matched by
// header name so files without the style column still load.
func (l *CSVLog) List(ctx context.Context) ([]Record, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	var records []Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec, err := rowToRecord(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// upgradeHeader rewrites a file whose header is a strict prefix of csvColumns
// so that every row carries the full column set. Other files are left alone.
func (l *CSVLog) upgradeHeader() error {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) || len(data) == 0 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read feedback log: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read feedback log: %w", err)
	}
	if len(rows) == 0 || !isLegacyHeader(rows[0]) {
		return nil
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows[1:] {
		padded := make([]string, len(csvColumns))
		copy(padded, row)
		if err := w.Write(padded); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode feedback log: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".feedback-*.csv")
	if err != nil {
		return fmt.Errorf("upgrade feedback log: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("upgrade feedback log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("upgrade feedback log: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("upgrade feedback log: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("upgrade feedback log: %w", err)
	}
	return nil
}

func isLegacyHeader(header []string) bool {
	if len(header) >= len(csvColumns) {
		return false
	}
	for i, name := range header {
		if name != csvColumns[i] {
			return false
		}
	}
	return true
}

// Close is a no-op; the file is opened per append.
func (l *CSVLog) Close() error {
	return nil
}

func recordToRow(rec Record) []string {
	return []string{
		rec.Timestamp.Format(TimestampLayout),
		rec.SourceText,
		rec.SystemPrompt,
		formatFloat(rec.TextTemperature),
		formatFloat(rec.ImageTemperature),
		rec.Reasoning,
		rec.FinalPrompt,
		rec.ImageFilename,
		string(rec.Rating),
		rec.Comments,
		rec.Style,
	}
}

func rowToRecord(row []string, index map[string]int) (Record, error) {
	field := func(name string) string {
		if i, ok := index[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var rec Record
	var err error

	rec.Timestamp, err = time.ParseInLocation(TimestampLayout, field("timestamp"), time.Local)
	if err != nil {
		return Record{}, fmt.Errorf("parse timestamp: %w", err)
	}
	if rec.TextTemperature, err = parseFloat(field("text_temperature")); err != nil {
		return Record{}, fmt.Errorf("parse text_temperature: %w", err)
	}
	if rec.ImageTemperature, err = parseFloat(field("image_temperature")); err != nil {
		return Record{}, fmt.Errorf("parse image_temperature: %w", err)
	}

	rec.SourceText = field("original_text")
	rec.SystemPrompt = field("used_system_prompt")
	rec.Reasoning = field("reasoning")
	rec.FinalPrompt = field("generated_prompt")
	rec.ImageFilename = field("image_filename")
	rec.Rating = Rating(field("rating"))
	rec.Comments = field("comments")
	rec.Style = field("style")
	return rec, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
