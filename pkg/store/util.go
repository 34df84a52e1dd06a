package store

// ChunkSize bounds the rows sent in a single insert batch.
const ChunkSize = 1000

// ChunkRange calls fn for consecutive [start, end) windows of at most
// chunkSize items covering [0, total).
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
