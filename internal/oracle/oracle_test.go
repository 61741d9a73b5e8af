package oracle

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerify(t *testing.T) {
	ref, err := bcrypt.GenerateFromPassword([]byte("target"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	var v Bcrypt
	ok, err := v.Verify("target", string(ref))
	if err != nil || !ok {
		t.Fatalf("Verify(target) = %v, %v", ok, err)
	}
	ok, err = v.Verify("aaaaaa", string(ref))
	if err != nil || ok {
		t.Fatalf("Verify(aaaaaa) = %v, %v", ok, err)
	}
}

func TestBcryptVerifyMalformedReference(t *testing.T) {
	var v Bcrypt
	for _, ref := range []string{"", "$2b$08$short", "not-a-hash-at-all-but-long-enough-to-pass-the-length-check", "$2b$99$J9FW66ZdPI2nrIMcOxFYI.zKGJsUXmWLAYWsNmIANUy5JbSjfyLFu"} {
		ok, err := v.Verify("target", ref)
		if ok {
			t.Fatalf("%q verified", ref)
		}
		if !errors.Is(err, ErrVerification) {
			t.Fatalf("%q: want ErrVerification, got %v", ref, err)
		}
	}
}

func TestSelfTest(t *testing.T) {
	if err := SelfTest(Bcrypt{}); err != nil {
		t.Fatal(err)
	}
	always := Func(func(string, string) (bool, error) { return true, nil })
	if err := SelfTest(always); err == nil {
		t.Fatal("verifier accepting everything passed the self-test")
	}
}

func TestEstimateDoublesPerCost(t *testing.T) {
	if PerHash(8) != 30*time.Millisecond {
		t.Fatalf("PerHash(8) = %v", PerHash(8))
	}
	for cost := 5; cost < 14; cost++ {
		if PerHash(cost+1) != 2*PerHash(cost) {
			t.Fatalf("PerHash(%d) = %v, PerHash(%d) = %v", cost+1, PerHash(cost+1), cost, PerHash(cost))
		}
	}
	if got := Estimate(10, 1000); got != 120*time.Second {
		t.Fatalf("Estimate(10, 1000) = %v", got)
	}
}
