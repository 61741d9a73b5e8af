package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"bcryptcrack/internal/corpus"
	"bcryptcrack/internal/models"
	"bcryptcrack/internal/oracle"
)

var ErrWorkerFailure = errors.New("worker failure")

// Match is the outcome of scanning a corpus against one reference.
type Match struct {
	Found    bool
	Password string
	// Index is the 0-based corpus position of Password, -1 when not found.
	Index        int
	Calls        int
	VerifyErrors int
}

type chunkResult struct {
	index        int
	calls        int
	verifyErrors int
}

type Pool struct {
	workers  int
	verifier oracle.Verifier
	log      zerolog.Logger

	// Progress, if set, is called from worker goroutines with the number of
	// oracle calls just made. It must be safe for concurrent use.
	Progress func(n int)
}

// NewPool returns a pool of n workers; n <= 0 means runtime.NumCPU().
func NewPool(n int, v oracle.Verifier, logger zerolog.Logger) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{
		workers:  n,
		verifier: v,
		log:      logger.With().Str("comp", "worker").Logger(),
	}
}

func (p *Pool) Workers() int { return p.workers }

// Scan runs one goroutine per chunk and waits for all of them. When more
// than one word verifies, the one with the lowest corpus index wins.
//
// Workers share the lowest match index found so far and stop once their
// position passes it, so no chunk that could still hold a lower match is
// abandoned early.
func (p *Pool) Scan(ctx context.Context, c *corpus.Corpus, reference string) (Match, error) {
	chunks := Partition(c.Len(), p.workers)

	var best atomic.Int64
	best.Store(math.MaxInt64)

	results := make([]chunkResult, len(chunks))
	failures := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, ch := range chunks {
		wg.Add(1)
		go func(i int, ch models.Chunk) {
			defer wg.Done()
			results[i], failures[i] = p.runChunk(ctx, c.Words(), ch, reference, &best)
		}(i, ch)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Match{Index: -1}, err
	}

	m := Match{Index: -1}
	for _, r := range results {
		m.Calls += r.calls
		m.VerifyErrors += r.verifyErrors
		if r.index >= 0 && (m.Index < 0 || r.index < m.Index) {
			m.Index = r.index
		}
	}

	// A failed chunk only matters if it could have held a lower match.
	for i, err := range failures {
		if err == nil {
			continue
		}
		if m.Index >= 0 && chunks[i].Start > m.Index {
			continue
		}
		return Match{Index: -1, Calls: m.Calls, VerifyErrors: m.VerifyErrors}, err
	}

	if m.Index >= 0 {
		m.Found = true
		m.Password = c.At(m.Index)
	}
	return m, nil
}

// runChunk scans ch, retrying it once from the start if the first attempt
// dies.
func (p *Pool) runChunk(ctx context.Context, words []string, ch models.Chunk, reference string, best *atomic.Int64) (chunkResult, error) {
	res, err := p.scanChunk(ctx, words, ch, reference, best)
	if err == nil || !errors.Is(err, ErrWorkerFailure) {
		return res, err
	}
	p.log.Warn().Err(err).Str("chunk", ch.ID).Int("start", ch.Start).Int("end", ch.End).Msg("worker failed, retrying chunk")

	retry, err := p.scanChunk(ctx, words, ch, reference, best)
	retry.calls += res.calls
	retry.verifyErrors += res.verifyErrors
	if err != nil {
		p.log.Error().Err(err).Str("chunk", ch.ID).Msg("worker failed twice, chunk result indeterminate")
	}
	return retry, err
}

func (p *Pool) scanChunk(ctx context.Context, words []string, ch models.Chunk, reference string, best *atomic.Int64) (res chunkResult, err error) {
	res.index = -1
	defer func() {
		if r := recover(); r != nil {
			res.index = -1
			err = fmt.Errorf("%w: chunk %s [%d,%d): %v", ErrWorkerFailure, ch.ID, ch.Start, ch.End, r)
		}
	}()

	for i := ch.Start; i < ch.End; i++ {
		if int64(i) > best.Load() {
			break
		}
		if ctx.Err() != nil {
			return res, nil
		}
		ok, verr := p.verifier.Verify(words[i], reference)
		res.calls++
		if p.Progress != nil {
			p.Progress(1)
		}
		if verr != nil {
			res.verifyErrors++
			continue
		}
		if ok {
			res.index = i
			lower(best, int64(i))
			break
		}
	}
	return res, nil
}

func lower(best *atomic.Int64, i int64) {
	for {
		cur := best.Load()
		if i >= cur || best.CompareAndSwap(cur, i) {
			return
		}
	}
}
