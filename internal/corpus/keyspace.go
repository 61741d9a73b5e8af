package corpus

import (
	"context"
	"errors"
	"fmt"
)

// maxKeyspaceWords bounds an enumerated keyspace so it fits in memory.
const maxKeyspaceWords = 50_000_000

var ErrKeyspaceOverflow = errors.New("keyspace overflow")

// KeyspaceSource enumerates every word over Alphabet with length
// MinLength..MaxLength, shortest first.
type KeyspaceSource struct {
	Alphabet  string
	MinLength int
	MaxLength int
}

func (k KeyspaceSource) Words(ctx context.Context) ([]string, error) {
	if len(k.Alphabet) == 0 {
		return nil, fmt.Errorf("empty alphabet")
	}
	minLen := k.MinLength
	if minLen < 1 {
		minLen = 1
	}
	total, err := KeyspaceSize(len(k.Alphabet), minLen, k.MaxLength)
	if err != nil {
		return nil, err
	}
	if total > maxKeyspaceWords {
		return nil, fmt.Errorf("%w: %d words exceeds limit %d", ErrKeyspaceOverflow, total, uint64(maxKeyspaceWords))
	}

	words := make([]string, 0, total)
	for idx := uint64(0); idx < total; idx++ {
		if idx&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		w, err := WordByIndex(idx, k.Alphabet, minLen, k.MaxLength)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}

// KeyspaceSize counts words of length minLen..maxLen over an alphabet of
// base symbols.
func KeyspaceSize(base, minLen, maxLen int) (uint64, error) {
	if base <= 0 {
		return 0, nil
	}
	var total uint64
	for l := minLen; l <= maxLen; l++ {
		power, err := pow(uint64(base), l)
		if err != nil {
			return 0, err
		}
		if total > ^uint64(0)-power {
			return 0, ErrKeyspaceOverflow
		}
		total += power
	}
	return total, nil
}

// WordByIndex returns the index-th word of the keyspace.
func WordByIndex(index uint64, alphabet string, minLen, maxLen int) (string, error) {
	if len(alphabet) == 0 {
		return "", fmt.Errorf("empty alphabet")
	}
	base := uint64(len(alphabet))
	remaining := index
	for l := minLen; l <= maxLen; l++ {
		count, err := pow(base, l)
		if err != nil {
			return "", err
		}
		if remaining < count {
			return wordFromIndex(remaining, l, alphabet), nil
		}
		remaining -= count
	}
	return "", fmt.Errorf("index %d is outside the keyspace", index)
}

func pow(base uint64, exp int) (uint64, error) {
	power := uint64(1)
	for i := 0; i < exp; i++ {
		if power > (^uint64(0))/base {
			return 0, ErrKeyspaceOverflow
		}
		power *= base
	}
	return power, nil
}

func wordFromIndex(index uint64, length int, alphabet string) string {
	base := uint64(len(alphabet))
	b := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		b[i] = alphabet[index%base]
		index /= base
	}
	return string(b)
}
