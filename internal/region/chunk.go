package region

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/Tnze/go-mc/nbt"

	"github.com/freeeve/blockcensus/internal/world"
)

const (
	sectionHeight = 16
	sectionVolume = world.ChunkSize * world.ChunkSize * sectionHeight

	// DataVersion of the first chunk format with block palettes (17w47a).
	versionPalette = 1451
	// DataVersion from which packed indices no longer span longs (20w17a).
	versionAlignedLongs = 2529
)

var (
	ErrLegacyChunk = errors.New("chunk predates block palettes")
	ErrShortData   = errors.New("block state data shorter than palette requires")
)

// chunkNBT covers both the 1.18+ layout (root Status and sections) and the
// 1.13-1.17 layout nested under Level.
type chunkNBT struct {
	DataVersion int32        `nbt:"DataVersion"`
	Status      string       `nbt:"Status"`
	Sections    []sectionNBT `nbt:"sections"`
	Level       levelNBT     `nbt:"Level"`
}

type levelNBT struct {
	Status   string             `nbt:"Status"`
	Sections []legacySectionNBT `nbt:"Sections"`
}

type sectionNBT struct {
	Y           int8           `nbt:"Y"`
	BlockStates blockStatesNBT `nbt:"block_states"`
}

type blockStatesNBT struct {
	Palette []blockStateNBT `nbt:"palette"`
	Data    []int64         `nbt:"data"`
}

type legacySectionNBT struct {
	Y           int8            `nbt:"Y"`
	Palette     []blockStateNBT `nbt:"Palette"`
	BlockStates []int64         `nbt:"BlockStates"`
}

type blockStateNBT struct {
	Name string `nbt:"Name"`
}

// section is one decoded 16x16x16 cube. indices is nil when the palette
// has a single entry.
type section struct {
	palette []string
	indices []uint16
}

func (s *section) at(x, y, z int) (string, bool) {
	if s.indices == nil {
		return s.palette[0], true
	}
	i := s.indices[(y&(sectionHeight-1))<<8|z<<4|x]
	if int(i) >= len(s.palette) {
		return "", false
	}
	return s.palette[i], true
}

// Chunk is a decoded chunk column. It implements world.Chunk.
type Chunk struct {
	dataVersion int32
	status      string
	yRange      world.YRange
	minSection  int
	sections    []*section // indexed by section y - minSection; nil = no blocks
}

// Decode parses an uncompressed chunk NBT payload.
func Decode(data []byte) (*Chunk, error) {
	var raw chunkNBT
	if err := nbt.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode chunk nbt: %w", err)
	}

	c := &Chunk{dataVersion: raw.DataVersion}
	if raw.DataVersion < versionPalette {
		return nil, fmt.Errorf("%w (data version %d)", ErrLegacyChunk, raw.DataVersion)
	}
	aligned := raw.DataVersion >= versionAlignedLongs

	decoded := make(map[int]*section)
	if len(raw.Sections) > 0 || raw.Level.Status == "" {
		c.status = raw.Status
		for _, s := range raw.Sections {
			sec, err := decodeSection(s.BlockStates.Palette, s.BlockStates.Data, aligned)
			if err != nil {
				return nil, fmt.Errorf("section %d: %w", s.Y, err)
			}
			if sec != nil {
				decoded[int(s.Y)] = sec
			}
		}
	} else {
		c.status = raw.Level.Status
		for _, s := range raw.Level.Sections {
			sec, err := decodeSection(s.Palette, s.BlockStates, aligned)
			if err != nil {
				return nil, fmt.Errorf("section %d: %w", s.Y, err)
			}
			if sec != nil {
				decoded[int(s.Y)] = sec
			}
		}
	}
	c.status = world.TrimNamespace(c.status)
	c.index(decoded)
	return c, nil
}

func (c *Chunk) index(decoded map[int]*section) {
	if len(decoded) == 0 {
		return
	}
	lo, hi := 0, 0
	first := true
	for y := range decoded {
		if first || y < lo {
			lo = y
		}
		if first || y > hi {
			hi = y
		}
		first = false
	}
	c.minSection = lo
	c.sections = make([]*section, hi-lo+1)
	for y, s := range decoded {
		c.sections[y-lo] = s
	}
	c.yRange = world.YRange{Start: lo * sectionHeight, End: (hi + 1) * sectionHeight}
}

// decodeSection unpacks a block state palette. It returns nil for sections
// without a palette.
func decodeSection(palette []blockStateNBT, data []int64, aligned bool) (*section, error) {
	if len(palette) == 0 {
		return nil, nil
	}
	s := &section{palette: make([]string, len(palette))}
	for i, p := range palette {
		s.palette[i] = p.Name
	}
	if len(palette) == 1 && len(data) == 0 {
		return s, nil
	}

	width := max(4, bits.Len(uint(len(palette)-1)))
	var need int
	if aligned {
		perLong := 64 / width
		need = (sectionVolume + perLong - 1) / perLong
	} else {
		need = (sectionVolume*width + 63) / 64
	}
	if len(data) < need {
		return nil, fmt.Errorf("%w: %d longs, want %d", ErrShortData, len(data), need)
	}

	s.indices = make([]uint16, sectionVolume)
	mask := uint64(1)<<width - 1
	if aligned {
		perLong := 64 / width
		for i := range s.indices {
			word := uint64(data[i/perLong])
			s.indices[i] = uint16(word >> (uint(i%perLong) * uint(width)) & mask)
		}
		return s, nil
	}
	for i := range s.indices {
		bit := i * width
		word, off := bit/64, uint(bit%64)
		v := uint64(data[word]) >> off
		if int(off)+width > 64 {
			v |= uint64(data[word+1]) << (64 - off)
		}
		s.indices[i] = uint16(v & mask)
	}
	return s, nil
}

// Status returns the generation status without its namespace.
func (c *Chunk) Status() string { return c.status }

// DataVersion returns the game data version the chunk was saved with.
func (c *Chunk) DataVersion() int32 { return c.dataVersion }

// YRange covers every section that stores blocks; it is empty when none do.
func (c *Chunk) YRange() world.YRange { return c.yRange }

// BlockAt returns the block at local x/z and absolute y.
func (c *Chunk) BlockAt(x, y, z int) (string, bool) {
	if x < 0 || x >= world.ChunkSize || z < 0 || z >= world.ChunkSize || !c.yRange.Contains(y) {
		return "", false
	}
	s := c.sections[floorDiv(y, sectionHeight)-c.minSection]
	if s == nil {
		return "", false
	}
	return s.at(x, y, z)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && (a < 0) != (b < 0) {
		q--
	}
	return q
}
