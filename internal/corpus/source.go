package corpus

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// SliceSource serves an in-memory word list.
type SliceSource []string

func (s SliceSource) Words(ctx context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// FileSource reads one word per line. Files ending in .gz are decompressed.
type FileSource struct {
	Path string
}

func (f FileSource) Words(ctx context.Context) ([]string, error) {
	fd, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	var r io.Reader = fd
	if strings.HasSuffix(f.Path, ".gz") {
		gz, err := gzip.NewReader(fd)
		if err != nil {
			return nil, fmt.Errorf("open gzip word list %s: %w", f.Path, err)
		}
		defer gz.Close()
		r = gz
	}
	return readWords(ctx, r)
}

func readWords(ctx context.Context, r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 0; sc.Scan(); n++ {
		// large lists: check for interrupt every 64k lines
		if n&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return words, nil
}
