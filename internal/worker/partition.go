package worker

import (
	"github.com/google/uuid"

	"bcryptcrack/internal/models"
)

// Partition splits [0, length) into at most n contiguous chunks of
// ceil(length/n) words; the last chunk takes whatever remains.
func Partition(length, n int) []models.Chunk {
	if length <= 0 {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	size := (length + n - 1) / n

	chunks := make([]models.Chunk, 0, n)
	for start := 0; start < length; start += size {
		end := start + size
		if end > length || len(chunks) == n-1 {
			end = length
		}
		chunks = append(chunks, models.Chunk{ID: uuid.NewString(), Start: start, End: end})
		if end == length {
			break
		}
	}
	return chunks
}
