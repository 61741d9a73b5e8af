package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bcryptcrack/internal/models"
)

const (
	MarkerNotFound = "NOT_FOUND"
	MarkerFailed   = "FAILED"
)

// Ledger persists finished crack results in completion order.
type Ledger interface {
	Append(ctx context.Context, r models.CrackResult) error
	Close() error
}

// File is an append-only ledger: one CSV line per result, written with a
// single write on an O_APPEND descriptor and synced before Append returns.
type File struct {
	mu sync.Mutex
	f  *os.File
}

func OpenFile(path string) (*File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

func (l *File) Append(ctx context.Context, r models.CrackResult) error {
	line, err := FormatLine(r)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return os.ErrClosed
	}
	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return l.f.Sync()
}

func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// FormatLine renders user,password_or_marker,elapsed_seconds,attempts,cost
// including the trailing newline.
func FormatLine(r models.CrackResult) ([]byte, error) {
	pw := MarkerNotFound
	switch {
	case r.Password != nil:
		pw = *r.Password
	case r.Status == models.StatusFailed:
		pw = MarkerFailed
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	err := w.Write([]string{
		r.User,
		pw,
		strconv.FormatFloat(r.Elapsed.Seconds(), 'f', 2, 64),
		strconv.Itoa(r.Attempts),
		strconv.Itoa(r.Cost),
	})
	if err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Read parses a ledger written by File. A password equal to one of the
// markers is read back as a marker.
func Read(r io.Reader) ([]models.CrackResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	var out []models.CrackResult
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		secs, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return out, fmt.Errorf("elapsed %q: %w", rec[2], err)
		}
		attempts, err := strconv.Atoi(rec[3])
		if err != nil {
			return out, fmt.Errorf("attempts %q: %w", rec[3], err)
		}
		cost, err := strconv.Atoi(rec[4])
		if err != nil {
			return out, fmt.Errorf("cost %q: %w", rec[4], err)
		}
		res := models.CrackResult{
			User:     rec[0],
			Elapsed:  time.Duration(secs * float64(time.Second)),
			Attempts: attempts,
			Cost:     cost,
		}
		switch rec[1] {
		case MarkerNotFound:
			res.Status = models.StatusExhausted
		case MarkerFailed:
			res.Status = models.StatusFailed
		default:
			pw := rec[1]
			res.Password = &pw
			res.Status = models.StatusCracked
		}
		out = append(out, res)
	}
}

// Multi writes every result to a primary ledger and then to best-effort
// mirrors. Only a primary failure is returned.
type Multi struct {
	primary Ledger
	mirrors []Ledger
	log     zerolog.Logger
}

func NewMulti(primary Ledger, logger zerolog.Logger, mirrors ...Ledger) *Multi {
	return &Multi{primary: primary, mirrors: mirrors, log: logger.With().Str("comp", "ledger").Logger()}
}

func (m *Multi) Append(ctx context.Context, r models.CrackResult) error {
	if err := m.primary.Append(ctx, r); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.Append(ctx, r); err != nil {
			m.log.Warn().Err(err).Str("user", r.User).Str("mirror", fmt.Sprintf("%T", mirror)).Msg("mirror append failed")
		}
	}
	return nil
}

func (m *Multi) Close() error {
	errs := []error{m.primary.Close()}
	for _, mirror := range m.mirrors {
		errs = append(errs, mirror.Close())
	}
	return errors.Join(errs...)
}
