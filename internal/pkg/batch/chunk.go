// Package batch splits work into bounded groups for collaborators that cap
// request sizes (push multicast, transactional deletes).
package batch

// Chunk splits items into consecutive groups of at most size elements,
// preserving order. The groups share the backing array of items.
//
// An empty input yields no groups. A size below 1 is treated as 1.
//
// Example:
//
//	Chunk([]int{1, 2, 3, 4, 5}, 2) // [[1 2] [3 4] [5]]
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
