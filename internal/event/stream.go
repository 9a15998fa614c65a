package event

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/newthinker/rewind/internal/archive"
)

// Writer streams events as line-delimited wire records. Each Append emits a
// complete record, so a consumer can begin replaying before the log is done.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a streaming log writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Append writes one event followed by a newline and flushes, keeping the
// log appendable and tail-able at every record boundary.
func (w *Writer) Append(ev Event) error {
	data, err := Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// WriteAll appends every event in order.
func (w *Writer) WriteAll(events []Event) error {
	for _, ev := range events {
		if err := w.Append(ev); err != nil {
			return err
		}
	}
	return nil
}

// Reader decodes a line-delimited event log.
type Reader struct {
	s *bufio.Scanner
}

// NewReader creates a log reader on top of r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{s: s}
}

// Next returns the next event, or io.EOF when the log is exhausted. Blank
// lines are skipped.
func (r *Reader) Next() (Event, error) {
	for r.s.Scan() {
		line := bytes.TrimSpace(r.s.Bytes())
		if len(line) == 0 {
			continue
		}
		return Unmarshal(line)
	}
	if err := r.s.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadAll decodes an entire log.
func ReadAll(r io.Reader) ([]Event, error) {
	reader := NewReader(r)
	var events []Event
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
}

// Encode renders a full log into one byte slice, one record per line.
func Encode(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteAll(events); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Publish writes an encoded event log to archive storage. Log I/O happens
// only at the pipeline boundary, never inside the bar loop.
func Publish(ctx context.Context, store archive.Storage, path string, events []Event) error {
	data, err := Encode(events)
	if err != nil {
		return err
	}
	return store.Write(ctx, path, data)
}

// Load reads an event log back from archive storage.
func Load(ctx context.Context, store archive.Storage, path string) ([]Event, error) {
	data, err := store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return ReadAll(bytes.NewReader(data))
}
