package region

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Test fixtures: NBT layouts as the game writes them.

type modernChunk struct {
	DataVersion int32           `nbt:"DataVersion"`
	Status      string          `nbt:"Status"`
	Sections    []modernSection `nbt:"sections"`
}

type modernSection struct {
	Y           int8              `nbt:"Y"`
	BlockStates modernBlockStates `nbt:"block_states"`
}

type modernBlockStates struct {
	Palette []blockStateNBT `nbt:"palette"`
	Data    []int64         `nbt:"data"`
}

type legacyChunk struct {
	DataVersion int32       `nbt:"DataVersion"`
	Level       legacyLevel `nbt:"Level"`
}

type legacyLevel struct {
	Status   string             `nbt:"Status"`
	Sections []legacySectionNBT `nbt:"Sections"`
}

func names(ns ...string) []blockStateNBT {
	out := make([]blockStateNBT, len(ns))
	for i, n := range ns {
		out[i] = blockStateNBT{Name: n}
	}
	return out
}

// pack encodes palette indices the way the game does for the given width.
func pack(indices []uint16, width int, aligned bool) []int64 {
	if aligned {
		perLong := 64 / width
		out := make([]int64, (len(indices)+perLong-1)/perLong)
		for i, v := range indices {
			out[i/perLong] |= int64(uint64(v) << (uint(i%perLong) * uint(width)))
		}
		return out
	}
	out := make([]uint64, (len(indices)*width+63)/64)
	for i, v := range indices {
		bit := i * width
		word, off := bit/64, uint(bit%64)
		out[word] |= uint64(v) << off
		if int(off)+width > 64 {
			out[word+1] |= uint64(v) >> (64 - off)
		}
	}
	res := make([]int64, len(out))
	for i, v := range out {
		res[i] = int64(v)
	}
	return res
}

func sectionIndex(x, y, z int) int { return (y&15)<<8 | z<<4 | x }

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := nbt.Marshal(v)
	if err != nil {
		t.Fatalf("nbt.Marshal: %v", err)
	}
	return data
}

func compress(t *testing.T, scheme byte, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch scheme {
	case Zlib:
		w := zlib.NewWriter(&buf)
		w.Write(data)
		w.Close()
	case Gzip:
		w := gzip.NewWriter(&buf)
		w.Write(data)
		w.Close()
	default:
		buf.Write(data)
	}
	return buf.Bytes()
}

// storedChunk is one chunk to place in a test region. payload is already
// compressed with scheme; external chunks carry only the prefix.
type storedChunk struct {
	x, z    int
	scheme  byte
	payload []byte
}

// buildRegion lays out a region file.
func buildRegion(chunks []storedChunk) []byte {
	header := make([]byte, HeaderSize)
	var body bytes.Buffer
	sector := HeaderSize / SectorSize
	for _, c := range chunks {
		var rec bytes.Buffer
		binary.Write(&rec, binary.BigEndian, uint32(len(c.payload)+1))
		rec.WriteByte(c.scheme)
		rec.Write(c.payload)
		for rec.Len()%SectorSize != 0 {
			rec.WriteByte(0)
		}
		count := rec.Len() / SectorSize
		i := index(c.x, c.z)
		binary.BigEndian.PutUint32(header[i*4:], uint32(sector)<<8|uint32(count))
		binary.BigEndian.PutUint32(header[SectorSize+i*4:], 1700000000)
		body.Write(rec.Bytes())
		sector += count
	}
	return append(header, body.Bytes()...)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
