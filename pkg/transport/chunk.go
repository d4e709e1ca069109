package transport

// Chunk is one contiguous slice of a payload.
type Chunk struct {
	Index int
	Total int
	Data  []byte
	// Size is the length of the whole payload.
	Size int
}

// Last reports whether this is the final chunk of its payload.
func (c Chunk) Last() bool { return c.Index == c.Total-1 }

// Frame returns the chunk with its framing header, ready for one link
// write.
func (c Chunk) Frame() []byte {
	out := make([]byte, chunkHeaderSize+len(c.Data))
	putChunkHeader(out, len(c.Data), c.Index == 0, c.Size)
	copy(out[chunkHeaderSize:], c.Data)
	return out
}

// Split cuts payload into ceil(len/size) chunks in order. The chunks share
// payload's backing array.
func Split(payload []byte, size int) []Chunk {
	if size <= 0 {
		size = ChunkSize
	}
	n := (len(payload) + size - 1) / size
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		end := min((i+1)*size, len(payload))
		chunks = append(chunks, Chunk{
			Index: i,
			Total: n,
			Data:  payload[i*size : end],
			Size:  len(payload),
		})
	}
	return chunks
}
