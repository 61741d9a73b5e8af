package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"bcryptcrack/internal/corpus"
	"bcryptcrack/internal/ledger"
	"bcryptcrack/internal/models"
	"bcryptcrack/internal/oracle"
	"bcryptcrack/internal/shadow"
	"bcryptcrack/internal/worker"
)

// Scanner searches the corpus for the word matching reference.
type Scanner interface {
	Scan(ctx context.Context, c *corpus.Corpus, reference string) (worker.Match, error)
	Workers() int
}

type Options struct {
	// RunID tags logs and status; a new uuid is used when empty.
	RunID string
	// RecordConcurrency is how many records of one cost group may be
	// scanned at once. Values below 1 mean 1.
	RecordConcurrency int
}

type Manager struct {
	runID       string
	corpus      *corpus.Corpus
	scanner     Scanner
	ledger      ledger.Ledger
	log         zerolog.Logger
	concurrency int

	mu     sync.RWMutex
	status models.RunStatus
	index  map[string]int
}

func NewManager(c *corpus.Corpus, s Scanner, l ledger.Ledger, logger zerolog.Logger, opts Options) *Manager {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	if opts.RecordConcurrency < 1 {
		opts.RecordConcurrency = 1
	}
	return &Manager{
		runID:       runID,
		corpus:      c,
		scanner:     s,
		ledger:      l,
		log:         logger.With().Str("comp", "manager").Str("run_id", runID).Logger(),
		concurrency: opts.RecordConcurrency,
		index:       make(map[string]int),
	}
}

func (m *Manager) RunID() string { return m.runID }

// Run cracks every record, cheapest cost group first and in input order
// within a group. Each result is appended to the ledger as soon as it is
// known. On cancellation the results finished so far are returned together
// with the context error; the in-flight record is dropped.
func (m *Manager) Run(ctx context.Context, recs []models.CredentialRecord) ([]models.CrackResult, error) {
	groups := shadow.GroupByCost(recs)
	m.reset(groups)
	defer m.finish()

	m.log.Info().
		Int("records", len(recs)).
		Int("groups", len(groups)).
		Int("corpus", m.corpus.Len()).
		Int("workers", m.scanner.Workers()).
		Msg("cracking started")

	results := make([]models.CrackResult, 0, len(recs))
	for _, g := range groups {
		glog := m.log.With().Int("cost", g.Cost).Logger()
		glog.Info().
			Int("users", len(g.Records)).
			Dur("worst_case_per_user", oracle.Estimate(g.Cost, m.corpus.Len())/time.Duration(m.scanner.Workers())).
			Msg("cracking cost group")

		start := time.Now()
		var (
			res []models.CrackResult
			err error
		)
		if m.concurrency == 1 {
			res, err = m.crackSequential(ctx, g)
		} else {
			res, err = m.crackConcurrent(ctx, g)
		}
		results = append(results, res...)
		if err != nil {
			return results, err
		}
		glog.Info().Dur("elapsed", time.Since(start)).Int("cracked", countFound(res)).Msg("cost group done")
	}
	return results, nil
}

func (m *Manager) crackSequential(ctx context.Context, g shadow.Group) ([]models.CrackResult, error) {
	var out []models.CrackResult
	for _, rec := range g.Records {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := m.crackRecord(ctx, rec)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (m *Manager) crackConcurrent(ctx context.Context, g shadow.Group) ([]models.CrackResult, error) {
	sem := semaphore.NewWeighted(int64(m.concurrency))
	slots := make([]*models.CrackResult, len(g.Records))
	errs := make([]error, len(g.Records))

	var wg sync.WaitGroup
	for i, rec := range g.Records {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		wg.Add(1)
		go func(i int, rec models.CredentialRecord) {
			defer wg.Done()
			defer sem.Release(1)
			res, err := m.crackRecord(ctx, rec)
			if err != nil {
				errs[i] = err
				return
			}
			slots[i] = &res
		}(i, rec)
	}
	wg.Wait()

	var out []models.CrackResult
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, errors.Join(errs...)
}

func (m *Manager) crackRecord(ctx context.Context, rec models.CredentialRecord) (models.CrackResult, error) {
	rlog := m.log.With().Str("user", rec.User).Int("cost", rec.Cost).Logger()
	m.setState(rec.User, models.StatusInProgress, 0)
	rlog.Info().Msg("cracking user")

	start := time.Now()
	match, err := m.scanner.Scan(ctx, m.corpus, rec.Reference)
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		m.setState(rec.User, models.StatusPending, 0)
		rlog.Warn().Dur("elapsed", elapsed).Msg("interrupted, record not persisted")
		return models.CrackResult{}, ctxErr
	}

	res := models.CrackResult{User: rec.User, Elapsed: elapsed, Cost: rec.Cost}
	switch {
	case err != nil:
		res.Status = models.StatusFailed
		res.Attempts = m.corpus.Len()
		rlog.Error().Err(err).Dur("elapsed", elapsed).Msg("scan failed, result indeterminate")
	case match.Found:
		pw := match.Password
		res.Password = &pw
		res.Status = models.StatusCracked
		res.Attempts = match.Index + 1
		rlog.Info().Str("password", pw).Int("attempts", res.Attempts).Dur("elapsed", elapsed).Msg("password found")
	default:
		res.Status = models.StatusExhausted
		res.Attempts = m.corpus.Len()
		if match.Calls > 0 && match.VerifyErrors == match.Calls {
			rlog.Warn().Int("verify_errors", match.VerifyErrors).Msg("every verification failed, reference is probably malformed")
		}
		rlog.Info().Int("attempts", res.Attempts).Dur("elapsed", elapsed).Msg("password not found, word list exhausted")
	}

	if err := m.ledger.Append(ctx, res); err != nil {
		rlog.Error().Err(err).Msg("persisting result failed")
		return res, fmt.Errorf("persist result for %s: %w", rec.User, err)
	}
	m.setState(rec.User, res.Status, res.Attempts)
	return res, nil
}

// Snapshot returns a copy of the run state.
func (m *Manager) Snapshot() models.RunStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.status
	s.Groups = append([]models.GroupStatus(nil), m.status.Groups...)
	s.Records = append([]models.RecordState(nil), m.status.Records...)
	return s
}

func (m *Manager) reset(groups []shadow.Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = models.RunStatus{
		RunID:      m.runID,
		StartedAt:  time.Now().UTC(),
		CorpusSize: m.corpus.Len(),
		Workers:    m.scanner.Workers(),
	}
	m.index = make(map[string]int)
	for _, g := range groups {
		m.status.Groups = append(m.status.Groups, models.GroupStatus{Cost: g.Cost, Total: len(g.Records)})
		for _, rec := range g.Records {
			m.index[rec.User] = len(m.status.Records)
			m.status.Records = append(m.status.Records, models.RecordState{User: rec.User, Cost: rec.Cost, Status: models.StatusPending})
		}
	}
}

func (m *Manager) setState(user string, st models.RecordStatus, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[user]
	if !ok {
		return
	}
	rs := &m.status.Records[i]
	rs.Status = st
	rs.Attempts = attempts
	if st != models.StatusCracked && st != models.StatusExhausted && st != models.StatusFailed {
		return
	}
	for gi := range m.status.Groups {
		g := &m.status.Groups[gi]
		if g.Cost != rs.Cost {
			continue
		}
		g.Done++
		if st == models.StatusCracked {
			g.Cracked++
		}
	}
}

func (m *Manager) finish() {
	m.mu.Lock()
	m.status.Finished = true
	m.mu.Unlock()
}

func countFound(rs []models.CrackResult) int {
	n := 0
	for _, r := range rs {
		if r.Found() {
			n++
		}
	}
	return n
}
