package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"bcryptcrack/internal/corpus"
	"bcryptcrack/internal/oracle"
)

func TestPartitionCoversRange(t *testing.T) {
	for length := 0; length <= 40; length++ {
		for n := 1; n <= 12; n++ {
			chunks := Partition(length, n)
			if len(chunks) > n {
				t.Fatalf("L=%d N=%d: %d chunks", length, n, len(chunks))
			}
			next := 0
			for _, ch := range chunks {
				if ch.Start != next {
					t.Fatalf("L=%d N=%d: gap or overlap at %d (chunk starts %d)", length, n, next, ch.Start)
				}
				if ch.End <= ch.Start {
					t.Fatalf("L=%d N=%d: empty chunk %+v", length, n, ch)
				}
				if ch.ID == "" {
					t.Fatal("chunk without id")
				}
				next = ch.End
			}
			if next != length {
				t.Fatalf("L=%d N=%d: chunks end at %d", length, n, next)
			}
		}
	}
}

func TestPartitionSizes(t *testing.T) {
	chunks := Partition(10, 4)
	want := [][2]int{{0, 3}, {3, 6}, {6, 9}, {9, 10}}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Start != want[i][0] || ch.End != want[i][1] {
			t.Fatalf("chunk %d = [%d,%d), want %v", i, ch.Start, ch.End, want[i])
		}
	}
	if got := Partition(3, 8); len(got) != 3 {
		t.Fatalf("3 words over 8 workers gave %d chunks", len(got))
	}
}

func equalsVerifier(targets ...string) oracle.Func {
	return func(password, reference string) (bool, error) {
		for _, t := range targets {
			if password == t {
				return true, nil
			}
		}
		return false, nil
	}
}

func words(n int) *corpus.Corpus {
	ws := make([]string, n)
	for i := range ws {
		ws[i] = string(rune('a'+i/26)) + string(rune('a'+i%26)) + "word"
	}
	return corpus.New(ws, 1, 10)
}

func TestScanFindsBcryptMatch(t *testing.T) {
	ref, err := bcrypt.GenerateFromPassword([]byte("target"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	c := corpus.New([]string{"aaaaaa", "bbbbbb", "target"}, 6, 10)
	p := NewPool(2, oracle.Bcrypt{}, zerolog.Nop())
	m, err := p.Scan(context.Background(), c, string(ref))
	if err != nil {
		t.Fatal(err)
	}
	if !m.Found || m.Password != "target" || m.Index != 2 {
		t.Fatalf("match = %+v", m)
	}
}

func TestScanLowestIndexWins(t *testing.T) {
	c := words(100)
	low, high := c.At(17), c.At(83)
	for _, n := range []int{1, 2, 3, 4, 7, 16} {
		p := NewPool(n, equalsVerifier(high, low), zerolog.Nop())
		m, err := p.Scan(context.Background(), c, "ref")
		if err != nil {
			t.Fatal(err)
		}
		if m.Index != 17 || m.Password != low {
			t.Fatalf("workers=%d: got index %d (%q), want 17", n, m.Index, m.Password)
		}
	}
}

func TestScanLowestIndexWhenHighChunkIsFaster(t *testing.T) {
	c := words(40)
	// With 2 workers the second chunk starts at 20 and matches immediately,
	// while the first chunk only matches at its end.
	low, high := c.At(19), c.At(20)
	started := make(chan struct{})
	var once sync.Once
	v := oracle.Func(func(password, _ string) (bool, error) {
		if password == high {
			once.Do(func() { close(started) })
			return true, nil
		}
		<-started
		return password == low, nil
	})
	m, err := NewPool(2, v, zerolog.Nop()).Scan(context.Background(), c, "ref")
	if err != nil {
		t.Fatal(err)
	}
	if m.Index != 19 {
		t.Fatalf("index = %d, want 19", m.Index)
	}
}

func TestScanNoMatch(t *testing.T) {
	c := words(50)
	var calls atomic.Int64
	p := NewPool(4, equalsVerifier(), zerolog.Nop())
	p.Progress = func(n int) { calls.Add(int64(n)) }
	m, err := p.Scan(context.Background(), c, "ref")
	if err != nil {
		t.Fatal(err)
	}
	if m.Found || m.Index != -1 {
		t.Fatalf("unexpected match %+v", m)
	}
	if m.Calls != 50 || calls.Load() != 50 {
		t.Fatalf("calls = %d, progress = %d, want 50", m.Calls, calls.Load())
	}
}

func TestScanEmptyCorpus(t *testing.T) {
	m, err := NewPool(4, equalsVerifier("x"), zerolog.Nop()).Scan(context.Background(), corpus.New(nil, 1, 5), "ref")
	if err != nil || m.Found {
		t.Fatalf("got %+v, %v", m, err)
	}
}

func TestScanVerificationFailuresAreNonMatches(t *testing.T) {
	c := words(30)
	v := oracle.Func(func(string, string) (bool, error) { return false, oracle.ErrVerification })
	m, err := NewPool(3, v, zerolog.Nop()).Scan(context.Background(), c, "garbage")
	if err != nil {
		t.Fatal(err)
	}
	if m.Found || m.VerifyErrors != 30 {
		t.Fatalf("match = %+v", m)
	}
}

func TestScanRetriesFailedChunkOnce(t *testing.T) {
	c := words(20)
	target := c.At(12)
	var panicked atomic.Bool
	v := oracle.Func(func(password, _ string) (bool, error) {
		if password == c.At(10) && panicked.CompareAndSwap(false, true) {
			panic("worker crashed")
		}
		return password == target, nil
	})
	m, err := NewPool(2, v, zerolog.Nop()).Scan(context.Background(), c, "ref")
	if err != nil {
		t.Fatalf("retry should recover: %v", err)
	}
	if m.Index != 12 {
		t.Fatalf("index = %d", m.Index)
	}
}

func TestScanSecondFailureIsFatal(t *testing.T) {
	c := words(20)
	v := oracle.Func(func(password, _ string) (bool, error) {
		if password == c.At(3) {
			panic("worker crashed")
		}
		return false, nil
	})
	_, err := NewPool(2, v, zerolog.Nop()).Scan(context.Background(), c, "ref")
	if !errors.Is(err, ErrWorkerFailure) {
		t.Fatalf("want ErrWorkerFailure, got %v", err)
	}
}

func TestScanFailureAfterLowerMatchIsIgnored(t *testing.T) {
	c := words(20)
	v := oracle.Func(func(password, _ string) (bool, error) {
		if password == c.At(15) {
			panic("worker crashed")
		}
		return password == c.At(2), nil
	})
	m, err := NewPool(2, v, zerolog.Nop()).Scan(context.Background(), c, "ref")
	if err != nil {
		t.Fatalf("failure above the match should not matter: %v", err)
	}
	if m.Index != 2 {
		t.Fatalf("index = %d", m.Index)
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPool(2, equalsVerifier(), zerolog.Nop()).Scan(ctx, words(10), "ref")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
