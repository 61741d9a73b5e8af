package shadow

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"bcryptcrack/internal/models"
)

// SaltLen is the length of the encoded bcrypt salt that prefixes the hash.
const SaltLen = 22

var ErrMalformedRecord = errors.New("malformed record")

// LineError describes one rejected input line.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}

// ParseLine turns "user:$alg$cost$<salt><hash>" into a record.
func ParseLine(line string) (models.CredentialRecord, error) {
	var rec models.CredentialRecord

	line = strings.TrimSpace(line)
	parts := strings.Split(line, ":")
	if len(parts) != 2 {
		return rec, malformed("expected exactly one ':' separator, got %d fields", len(parts))
	}
	user, full := parts[0], parts[1]
	if user == "" {
		return rec, malformed("empty user id")
	}

	// "$2b$08$saltandhash" splits into ["", "2b", "08", "saltandhash"]
	segs := strings.Split(full, "$")
	if len(segs) < 4 {
		return rec, malformed("hash field has %d '$' segments, want at least 4", len(segs))
	}
	if segs[0] != "" || segs[1] == "" {
		return rec, malformed("hash field must start with $<alg>$")
	}

	cost, err := strconv.Atoi(segs[2])
	if err != nil || cost <= 0 || strings.HasPrefix(segs[2], "+") {
		return rec, malformed("cost %q is not a positive integer", segs[2])
	}

	saltHash := strings.Join(segs[3:], "$")
	if len(saltHash) < SaltLen {
		return rec, malformed("salt+hash field is %d chars, shorter than salt length %d", len(saltHash), SaltLen)
	}

	rec = models.CredentialRecord{
		User:      user,
		Algorithm: segs[1],
		Cost:      cost,
		CostField: segs[2],
		Salt:      saltHash[:SaltLen],
		Hash:      saltHash[SaltLen:],
		Reference: full,
	}
	return rec, nil
}

// Encode re-emits a record in its input form.
func Encode(rec models.CredentialRecord) string {
	return rec.User + ":" + SaltPrefix(rec) + rec.Hash
}

// SaltPrefix returns "$alg$cost$salt", the part of the reference that
// carries the hashing parameters.
func SaltPrefix(rec models.CredentialRecord) string {
	cost := rec.CostField
	if cost == "" {
		cost = fmt.Sprintf("%02d", rec.Cost)
	}
	return "$" + rec.Algorithm + "$" + cost + "$" + rec.Salt
}

// Parse reads records one per line. Blank lines and '#' comments are
// ignored; malformed lines are reported in errs and skipped. A non-nil error
// is returned only when reading r fails.
func Parse(r io.Reader) (recs []models.CredentialRecord, errs []*LineError, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	seen := make(map[string]int)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		rec, perr := ParseLine(text)
		if perr != nil {
			errs = append(errs, &LineError{Line: n, Text: text, Err: perr})
			continue
		}
		if first, dup := seen[rec.User]; dup {
			errs = append(errs, &LineError{Line: n, Text: text,
				Err: malformed("duplicate user %q (first seen on line %d)", rec.User, first)})
			continue
		}
		seen[rec.User] = n
		rec.Line = n
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return recs, errs, fmt.Errorf("read records: %w", err)
	}
	return recs, errs, nil
}

type Group struct {
	Cost    int
	Records []models.CredentialRecord
}

// GroupByCost buckets records by cost factor, cheapest first. Records keep
// their input order inside a group.
func GroupByCost(recs []models.CredentialRecord) []Group {
	idx := make(map[int]int)
	var groups []Group
	for _, rec := range recs {
		i, ok := idx[rec.Cost]
		if !ok {
			i = len(groups)
			idx[rec.Cost] = i
			groups = append(groups, Group{Cost: rec.Cost})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Cost < groups[b].Cost })
	return groups
}
