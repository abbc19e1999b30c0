package track

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Source yields the raw lines of a track in order. Next returns io.EOF once
// the track is exhausted.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// SliceSource serves lines from memory
type SliceSource struct {
	lines []string
	pos   int
}

// NewSliceSource creates a source over lines. The slice is not copied.
func NewSliceSource(lines []string) *SliceSource {
	return &SliceSource{lines: lines}
}

// Next returns the next line
func (s *SliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

// Len returns the total number of lines
func (s *SliceSource) Len() int {
	return len(s.lines)
}

// MaxLineLength bounds the bytes kept for one line. Longer lines are
// discarded and returned empty, which parses as Skip.
const MaxLineLength = 1024 * 1024

// ReaderSource reads newline-delimited lines lazily from an io.Reader
type ReaderSource struct {
	reader *bufio.Reader
	done   bool
}

// NewReaderSource creates a source reading from r
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next line with its line ending removed
func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.done {
		return "", io.EOF
	}

	var (
		line      []byte
		read      bool
		oversized bool
	)
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		if !oversized {
			if len(line)+len(chunk) > MaxLineLength+2 {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case err == nil:
			return finishLine(line, oversized), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			s.done = true
			if !read {
				return "", io.EOF
			}
			return finishLine(line, oversized), nil
		default:
			return "", fmt.Errorf("failed to read track line: %w", err)
		}
	}
}

func finishLine(line []byte, oversized bool) string {
	if oversized {
		return ""
	}
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return string(line)
}

// FileSource is a ReaderSource backed by an open file
type FileSource struct {
	*ReaderSource
	file *os.File
}

// OpenFile opens a track file for reading
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track %s: %w", path, err)
	}
	return &FileSource{
		ReaderSource: NewReaderSource(f),
		file:         f,
	}, nil
}

// Close releases the underlying file
func (s *FileSource) Close() error {
	return s.file.Close()
}
