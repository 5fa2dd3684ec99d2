package world

// ChunkSize is the horizontal footprint of a chunk along x and z.
const ChunkSize = 16

// Chunk is one decoded chunk column.
type Chunk interface {
	// Status is the generation status with any namespace removed.
	Status() string
	// YRange is the vertical extent the chunk stores blocks for.
	YRange() YRange
	// BlockAt returns the block type at local x/z (0..15) and absolute y.
	// ok is false where the chunk stores no block.
	BlockAt(x, y, z int) (name string, ok bool)
}
