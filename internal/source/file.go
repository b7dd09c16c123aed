package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// maxLine bounds one JSON line; full status objects with entities run to a
// few tens of kilobytes.
const maxLine = 4 << 20

// File reads one JSON message per line. Blank lines are skipped.
type File struct {
	r      io.Reader
	closer io.Closer
	err    error
}

// OpenFile opens path, or stdin for "-".
func OpenFile(path string) (*File, error) {
	if path == "-" || path == "" {
		return &File{r: os.Stdin}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &File{r: f, closer: f}, nil
}

// NewReader wraps an already open stream.
func NewReader(r io.Reader) *File { return &File{r: r} }

func (f *File) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(f.r)
		sc.Buffer(make([]byte, 64*1024), maxLine)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			body := append([]byte(nil), line...)
			select {
			case out <- Delivery{Body: body, Ack: noop, Nack: noopNack}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			f.err = fmt.Errorf("read messages: %w", err)
		}
	}()
	return out, nil
}

// Err returns the read error that ended the stream, such as a line longer
// than the 4 MiB limit.
func (f *File) Err() error { return f.err }

func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
