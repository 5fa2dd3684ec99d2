package census

import (
	"errors"
	"sync"

	"github.com/freeeve/blockcensus/internal/world"
)

// fakeChunk stores explicit blocks and optionally fills the rest of its
// range with one block type.
type fakeChunk struct {
	status string
	yRange world.YRange
	fill   string
	blocks map[[3]int]string
}

func (c *fakeChunk) Status() string       { return c.status }
func (c *fakeChunk) YRange() world.YRange { return c.yRange }

func (c *fakeChunk) BlockAt(x, y, z int) (string, bool) {
	if !c.yRange.Contains(y) {
		return "", false
	}
	if name, ok := c.blocks[[3]int{x, y, z}]; ok {
		return name, true
	}
	if c.fill != "" {
		return c.fill, true
	}
	return "", false
}

// fakeRegion yields its chunks in order, then returns err.
type fakeRegion struct {
	chunks []*fakeChunk
	err      error
	closeErr error
	closed   bool
}

func (r *fakeRegion) ForEachChunk(fn func(x, z int, c world.Chunk) error) error {
	for i, c := range r.chunks {
		if err := fn(i, 0, c); err != nil {
			return err
		}
	}
	return r.err
}

func (r *fakeRegion) Close() error {
	r.closed = true
	return r.closeErr
}

var errNoSuchFile = errors.New("no such file")

// fakeOpener serves regions by path.
type fakeOpener struct {
	mu      sync.Mutex
	regions map[string]*fakeRegion
	opened  []string
}

func (o *fakeOpener) Open(path string) (Region, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, path)
	r, ok := o.regions[path]
	if !ok {
		return nil, errNoSuchFile
	}
	return r, nil
}

// column returns a full chunk with count blocks of name stacked from y
// at x=0, z=0.
func column(status string, r world.YRange, name string, y, count int) *fakeChunk {
	c := &fakeChunk{status: status, yRange: r, blocks: make(map[[3]int]string)}
	for i := 0; i < count; i++ {
		c.blocks[[3]int{0, y + i, 0}] = name
	}
	return c
}
