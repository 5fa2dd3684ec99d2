package report

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Create opens an output sink. "-" and "" mean stdout; a .zst or .gz
// suffix compresses the stream.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedCloser{Writer: enc, closers: []io.Closer{enc, f}}, nil
	case strings.HasSuffix(path, ".gz"):
		gz := gzip.NewWriter(f)
		return &stackedCloser{Writer: gz, closers: []io.Closer{gz, f}}, nil
	}
	return f, nil
}

// Open opens a report for reading, undoing the compression Create applied.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedReadCloser{Reader: dec, close: func() error {
			dec.Close()
			return f.Close()
		}}, nil
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &stackedReadCloser{Reader: gz, close: func() error {
			gz.Close()
			return f.Close()
		}}, nil
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// stackedCloser closes its closers in order, keeping the first error.
type stackedCloser struct {
	io.Writer
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type stackedReadCloser struct {
	io.Reader
	close func() error
}

func (s *stackedReadCloser) Close() error { return s.close() }
