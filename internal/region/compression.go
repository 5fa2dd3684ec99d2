package region

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Compression schemes of a chunk payload.
const (
	Gzip         byte = 1
	Zlib         byte = 2
	Uncompressed byte = 3
	LZ4          byte = 4

	externalFlag byte = 0x80
)

var ErrUnsupportedCompression = errors.New("unsupported chunk compression")

func decompress(scheme byte, data []byte) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch scheme {
	case Gzip:
		r, err = gzip.NewReader(bytes.NewReader(data))
	case Zlib:
		r, err = zlib.NewReader(bytes.NewReader(data))
	case Uncompressed:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, scheme)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
