// Package region reads Anvil region files (*.mca) and decodes the chunks
// they contain.
//
// A region file starts with an 8 KiB header: 1024 big-endian location
// entries (3-byte sector offset, 1-byte sector count) followed by 1024
// timestamps. Each stored chunk begins on a 4 KiB sector boundary with a
// 4-byte length, a 1-byte compression type and the compressed NBT payload.
// Payloads too large for the region live in c.<x>.<z>.mcc files next to it.
package region

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/freeeve/blockcensus/internal/world"
)

const (
	SectorSize = 4096
	HeaderSize = 2 * SectorSize
	// Width is the number of chunks along each horizontal axis of a region.
	Width           = 32
	ChunksPerRegion = Width * Width
)

var (
	ErrTruncatedHeader = errors.New("region header truncated")
	ErrBadLocation     = errors.New("chunk location outside region file")
	ErrBadLength       = errors.New("chunk length does not fit its sectors")
	ErrNoCoords        = errors.New("region coordinates unknown")
)

// ChunkError wraps a failure to read or decode one chunk. x and z are
// region-local chunk coordinates.
type ChunkError struct {
	X, Z int
	Err  error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk (%d, %d): %v", e.X, e.Z, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

type location struct {
	offset  uint32 // in sectors
	sectors uint8
}

func (l location) present() bool { return l.offset != 0 || l.sectors != 0 }

// File is an opened region file.
type File struct {
	r          io.ReaderAt
	closer     io.Closer
	size       int64
	dir        string
	rx, rz     int
	haveCoords bool

	locations  [ChunksPerRegion]location
	timestamps [ChunksPerRegion]uint32
}

// Open opens the region file at path. Region coordinates are taken from a
// r.<x>.<z>.mca file name when it has one; they are only needed for
// chunks stored in external .mcc files.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	rf, err := NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rf.closer = f
	rf.dir = filepath.Dir(path)
	rf.rx, rf.rz, rf.haveCoords = ParseName(filepath.Base(path))
	return rf, nil
}

// NewReader reads the region header from r. A zero-length region holds no
// chunks; any other size below the header length is an error.
func NewReader(r io.ReaderAt, size int64) (*File, error) {
	rf := &File{r: r, size: size}
	if size == 0 {
		return rf, nil
	}
	if size < HeaderSize {
		return nil, ErrTruncatedHeader
	}

	var header [HeaderSize]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return nil, fmt.Errorf("read region header: %w", err)
	}
	for i := 0; i < ChunksPerRegion; i++ {
		entry := binary.BigEndian.Uint32(header[i*4:])
		rf.locations[i] = location{offset: entry >> 8, sectors: uint8(entry)}
		rf.timestamps[i] = binary.BigEndian.Uint32(header[SectorSize+i*4:])
	}
	return rf, nil
}

// ParseName extracts region coordinates from a r.<x>.<z>.mca file name.
func ParseName(name string) (x, z int, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 4 || parts[0] != "r" || parts[3] != "mca" {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(parts[1])
	z, errZ := strconv.Atoi(parts[2])
	if errX != nil || errZ != nil {
		return 0, 0, false
	}
	return x, z, true
}

// SetCoords sets the region coordinates used to locate external chunk
// files when the file name does not carry them.
func (f *File) SetCoords(x, z int) {
	f.rx, f.rz, f.haveCoords = x, z, true
}

// Close closes the underlying file, if Open created it.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func index(x, z int) int { return (x & (Width - 1)) + (z&(Width-1))*Width }

// Present reports whether the chunk at local (x, z) is stored.
func (f *File) Present(x, z int) bool {
	return f.locations[index(x, z)].present()
}

// Timestamp returns the last-modified time of the chunk at local (x, z) in
// seconds since the epoch.
func (f *File) Timestamp(x, z int) uint32 {
	return f.timestamps[index(x, z)]
}

// Count returns the number of stored chunks.
func (f *File) Count() int {
	n := 0
	for _, l := range f.locations {
		if l.present() {
			n++
		}
	}
	return n
}

// ReadChunk returns the decompressed NBT payload of the chunk at local
// (x, z), or nil if it is not stored.
func (f *File) ReadChunk(x, z int) ([]byte, error) {
	loc := f.locations[index(x, z)]
	if !loc.present() {
		return nil, nil
	}

	start := int64(loc.offset) * SectorSize
	end := start + int64(loc.sectors)*SectorSize
	if loc.offset < HeaderSize/SectorSize || end > f.size {
		return nil, ErrBadLocation
	}

	var prefix [5]byte
	if _, err := f.r.ReadAt(prefix[:], start); err != nil {
		return nil, fmt.Errorf("read chunk prefix: %w", err)
	}
	length := int64(binary.BigEndian.Uint32(prefix[:4]))
	scheme := prefix[4]

	if scheme&externalFlag != 0 {
		return f.readExternal(x, z, scheme&^externalFlag)
	}
	if length < 1 || start+4+length > end {
		return nil, ErrBadLength
	}

	data := make([]byte, length-1)
	if _, err := f.r.ReadAt(data, start+5); err != nil {
		return nil, fmt.Errorf("read chunk payload: %w", err)
	}
	return decompress(scheme, data)
}

func (f *File) readExternal(x, z int, scheme byte) ([]byte, error) {
	if !f.haveCoords {
		return nil, ErrNoCoords
	}
	name := fmt.Sprintf("c.%d.%d.mcc", f.rx*Width+x, f.rz*Width+z)
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read external chunk: %w", err)
	}
	return decompress(scheme, data)
}

// ForEachChunk decodes every stored chunk in index order and calls fn with
// its region-local coordinates. The first read, decode or callback error
// stops the scan and is returned; read and decode failures are wrapped in a
// *ChunkError.
func (f *File) ForEachChunk(fn func(x, z int, c world.Chunk) error) error {
	for i, loc := range f.locations {
		if !loc.present() {
			continue
		}
		x, z := i%Width, i/Width
		data, err := f.ReadChunk(x, z)
		if err != nil {
			return &ChunkError{X: x, Z: z, Err: err}
		}
		c, err := Decode(data)
		if err != nil {
			return &ChunkError{X: x, Z: z, Err: err}
		}
		if err := fn(x, z, c); err != nil {
			return err
		}
	}
	return nil
}
