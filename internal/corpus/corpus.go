package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var ErrCorpusUnavailable = errors.New("corpus unavailable")

// Source yields raw candidate words in any order, duplicates allowed.
type Source interface {
	Words(ctx context.Context) ([]string, error)
}

// Provider builds the filtered corpus used for an attack.
type Provider interface {
	Load(ctx context.Context, minLen, maxLen int) (*Corpus, error)
}

// Corpus is a sorted, deduplicated, lower-cased word list. It is never
// mutated after Load returns and may be shared between goroutines.
type Corpus struct {
	words  []string
	minLen int
	maxLen int
}

// New builds a corpus directly from words, applying the same
// normalisation as Loader.
func New(words []string, minLen, maxLen int) *Corpus {
	return &Corpus{words: normalize(words, minLen, maxLen), minLen: minLen, maxLen: maxLen}
}

func (c *Corpus) Len() int { return len(c.words) }

func (c *Corpus) At(i int) string { return c.words[i] }

// Words returns the backing slice; callers must not modify it.
func (c *Corpus) Words() []string { return c.words }

func (c *Corpus) Bounds() (minLen, maxLen int) { return c.minLen, c.maxLen }

// Index returns the 0-based attempt position of word, or -1.
func (c *Corpus) Index(word string) int {
	i := sort.SearchStrings(c.words, word)
	if i < len(c.words) && c.words[i] == word {
		return i
	}
	return -1
}

type Loader struct {
	src Source
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

func (l *Loader) Load(ctx context.Context, minLen, maxLen int) (*Corpus, error) {
	if minLen < 1 || maxLen < minLen {
		return nil, fmt.Errorf("%w: invalid length filter [%d, %d]", ErrCorpusUnavailable, minLen, maxLen)
	}
	if l.src == nil {
		return nil, fmt.Errorf("%w: no word source configured", ErrCorpusUnavailable)
	}
	raw, err := l.src.Words(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
	}
	c := New(raw, minLen, maxLen)
	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: no words of length %d-%d in %d candidates", ErrCorpusUnavailable, minLen, maxLen, len(raw))
	}
	return c, nil
}

func normalize(raw []string, minLen, maxLen int) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.ToLower(strings.TrimSpace(w))
		n := utf8.RuneCountInString(w)
		if n < minLen || n > maxLen {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
