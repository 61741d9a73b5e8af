package corpus

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoaderFiltersAndSorts(t *testing.T) {
	src := SliceSource{"Target", "aaaaaa", "bbbbbb", "tiny", "waytoolongword", "TARGET", " bbbbbb ", "Zebras"}
	c, err := NewLoader(src).Load(context.Background(), 6, 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"aaaaaa", "bbbbbb", "target", "zebras"}
	if !reflect.DeepEqual(c.Words(), want) {
		t.Fatalf("words = %v, want %v", c.Words(), want)
	}
	if got := c.Index("target"); got != 2 {
		t.Fatalf("Index(target) = %d", got)
	}
	if got := c.Index("missing"); got != -1 {
		t.Fatalf("Index(missing) = %d", got)
	}
	if lo, hi := c.Bounds(); lo != 6 || hi != 10 {
		t.Fatalf("bounds = %d,%d", lo, hi)
	}
}

func TestLoaderDeterministic(t *testing.T) {
	src := SliceSource{"delta", "alpha", "charlie", "bravo", "alpha", "Echo", "foxtrot"}
	a, err := NewLoader(src).Load(context.Background(), 4, 7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewLoader(src).Load(context.Background(), 4, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Words(), b.Words()) {
		t.Fatalf("two loads differ: %v vs %v", a.Words(), b.Words())
	}
	seen := map[string]bool{}
	for i, w := range a.Words() {
		if seen[w] {
			t.Fatalf("duplicate %q", w)
		}
		seen[w] = true
		if i > 0 && a.Words()[i-1] >= w {
			t.Fatalf("not strictly sorted at %d", i)
		}
	}
}

type failingSource struct{}

func (failingSource) Words(context.Context) ([]string, error) {
	return nil, errors.New("disk on fire")
}

func TestLoaderUnavailable(t *testing.T) {
	ctx := context.Background()
	cases := map[string]struct {
		src      Source
		min, max int
	}{
		"source error":   {failingSource{}, 6, 10},
		"missing file":   {FileSource{Path: filepath.Join(t.TempDir(), "nope.txt")}, 6, 10},
		"bad filter":     {SliceSource{"abcdef"}, 8, 6},
		"zero min":       {SliceSource{"abcdef"}, 0, 6},
		"empty filtered": {SliceSource{"ab", "abc"}, 6, 10},
		"nil source":     {nil, 6, 10},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(tc.src).Load(ctx, tc.min, tc.max)
			if !errors.Is(err, ErrCorpusUnavailable) {
				t.Fatalf("want ErrCorpusUnavailable, got %v", err)
			}
		})
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "words.txt")
	if err := os.WriteFile(plain, []byte("# header\nsecret\n\nPassword\nsecret\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := NewLoader(FileSource{Path: plain}).Load(context.Background(), 6, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.Words(), []string{"password", "secret"}) {
		t.Fatalf("words = %v", c.Words())
	}

	gzPath := filepath.Join(dir, "words.txt.gz")
	f, err := os.Create(gzPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte("gandalf\nbilbo\nbaggins\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	words, err := FileSource{Path: gzPath}.Words(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(words, []string{"gandalf", "bilbo", "baggins"}) {
		t.Fatalf("gz words = %v", words)
	}
}

func TestKeyspaceSource(t *testing.T) {
	words, err := KeyspaceSource{Alphabet: "ab", MinLength: 1, MaxLength: 2}.Words(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "aa", "ab", "ba", "bb"}
	if !reflect.DeepEqual(words, want) {
		t.Fatalf("words = %v, want %v", words, want)
	}

	n, err := KeyspaceSize(36, 1, 3)
	if err != nil || n != 36+36*36+36*36*36 {
		t.Fatalf("KeyspaceSize = %d, %v", n, err)
	}
	if _, err := KeyspaceSize(256, 1, 9); !errors.Is(err, ErrKeyspaceOverflow) {
		t.Fatalf("want overflow, got %v", err)
	}
	if _, err := (KeyspaceSource{Alphabet: "abcdefghijklmnopqrstuvwxyz", MaxLength: 8}).Words(context.Background()); !errors.Is(err, ErrKeyspaceOverflow) {
		t.Fatalf("want keyspace limit error, got %v", err)
	}
	if _, err := WordByIndex(6, "ab", 1, 2); err == nil {
		t.Fatal("index past keyspace should fail")
	}
}
