// Package oracle answers whether a candidate password produces a stored
// salted hash. Each answer costs one full bcrypt computation, which doubles
// with every cost increment, so callers should treat Verify as the only
// operation worth spreading across workers.
package oracle

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrVerification is returned when the reference cannot be used at all,
// e.g. a bad prefix or an out-of-range cost.
var ErrVerification = errors.New("verification failure")

type Verifier interface {
	Verify(password, reference string) (bool, error)
}

// Bcrypt verifies against "$2a$", "$2b$" and "$2y$" references.
type Bcrypt struct{}

func (Bcrypt) Verify(password, reference string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(reference), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrVerification, err)
	}
}

// Func adapts a plain function to Verifier.
type Func func(password, reference string) (bool, error)

func (f Func) Verify(password, reference string) (bool, error) { return f(password, reference) }

// Latency at cost 8 measured on the reference machine; see Estimate.
const baseCost = 8

var baseLatency = 30 * time.Millisecond

// PerHash is the expected latency of one verification at cost.
func PerHash(cost int) time.Duration {
	d := baseLatency
	for c := baseCost; c < cost; c++ {
		d *= 2
	}
	for c := baseCost; c > cost; c-- {
		d /= 2
	}
	return d
}

// Estimate is the worst-case single-core time to scan words candidates
// against one reference of the given cost.
func Estimate(cost, words int) time.Duration {
	return PerHash(cost) * time.Duration(words)
}

const (
	selfTestPassword  = "registrationsucks"
	selfTestReference = "$2b$08$J9FW66ZdPI2nrIMcOxFYI.zKGJsUXmWLAYWsNmIANUy5JbSjfyLFu"
)

// SelfTest checks v against a known bcrypt vector.
func SelfTest(v Verifier) error {
	ok, err := v.Verify(selfTestPassword, selfTestReference)
	if err != nil {
		return fmt.Errorf("self-test: %w", err)
	}
	if !ok {
		return fmt.Errorf("self-test: known vector did not verify")
	}
	ok, err = v.Verify(selfTestPassword+"!", selfTestReference)
	if err != nil {
		return fmt.Errorf("self-test: %w", err)
	}
	if ok {
		return fmt.Errorf("self-test: wrong password verified")
	}
	return nil
}
