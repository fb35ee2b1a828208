package recordlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joripage/fixsim/pkg/capture/model"
	"github.com/quickfixgo/enum"
)

var fixedColumns = []string{"direction", "message_type", "sequence_number", "sending_time"}

// Header returns the column order of a persisted log: the fixed columns
// followed by every known tag in ascending numeric order.
func Header() []string {
	tags := model.KnownTags()
	out := make([]string, 0, len(fixedColumns)+len(tags))
	out = append(out, fixedColumns...)
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

// Write persists records as CSV. Absent fields are written as empty cells.
func Write(w io.Writer, records []model.EventRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}

	tags := model.KnownTags()
	row := make([]string, len(fixedColumns)+len(tags))
	for _, rec := range records {
		row[0] = string(rec.Direction)
		row[1] = string(rec.MessageType)
		row[2] = strconv.Itoa(rec.SequenceNumber)
		row[3] = formatTime(rec.SendingTime)
		for i, t := range tags {
			row[len(fixedColumns)+i] = encodeValue(rec.Fields[t])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a log written by Write. Columns are matched by header name,
// so a file with a subset of tag columns still loads.
func Read(r io.Reader) ([]model.EventRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrBadHeader)
	}
	if err != nil {
		return nil, err
	}
	if len(header) < len(fixedColumns) {
		return nil, fmt.Errorf("%w: %d columns", ErrBadHeader, len(header))
	}
	for i, name := range fixedColumns {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], name)
		}
	}
	tags := make([]model.Tag, 0, len(header)-len(fixedColumns))
	for _, name := range header[len(fixedColumns):] {
		t, ok := model.ParseTag(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown tag column %q", ErrBadHeader, name)
		}
		tags = append(tags, t)
	}

	var out []model.EventRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseRow(row, tags)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
}

func parseRow(row []string, tags []model.Tag) (model.EventRecord, error) {
	dir, err := model.ParseDirection(row[0])
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("%w: %v", ErrBadRow, err)
	}
	seq, err := strconv.Atoi(row[2])
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("%w: sequence number %q", ErrBadRow, row[2])
	}
	sendingTime, err := parseTime(row[3])
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("%w: sending time %q", ErrBadRow, row[3])
	}

	fields := make(model.Fields)
	for i, t := range tags {
		v, err := decodeValue(row[len(fixedColumns)+i])
		if err != nil {
			return model.EventRecord{}, fmt.Errorf("%w: tag %s: %v", ErrBadRow, t, err)
		}
		fields.Set(t, v)
	}
	rec := model.EventRecord{
		Direction:      dir,
		MessageType:    enum.MsgType(row[1]),
		SequenceNumber: seq,
		SendingTime:    sendingTime,
		Fields:         fields,
	}
	if err := rec.Validate(); err != nil {
		return model.EventRecord{}, fmt.Errorf("%w: %v", ErrBadRow, err)
	}
	return rec, nil
}

// encodeValue writes a tag value as a Go quoted string when it holds a
// carriage return, which csv.Reader would drop before a newline, or when it
// already starts with a double quote. Every other value is written as is.
func encodeValue(v string) string {
	if strings.ContainsRune(v, '\r') || strings.HasPrefix(v, `"`) {
		return strconv.Quote(v)
	}
	return v
}

func decodeValue(cell string) (string, error) {
	if !strings.HasPrefix(cell, `"`) {
		return cell, nil
	}
	return strconv.Unquote(cell)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// WriteFile writes the log to path, creating parent directories.
func WriteFile(path string, records []model.EventRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func ReadFile(path string) ([]model.EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
