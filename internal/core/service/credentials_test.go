package service

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher()

	hash, err := h.Hash("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "s3cret" {
		t.Fatalf("expected password to be hashed")
	}
	if !h.Verify("s3cret", hash) {
		t.Fatalf("expected matching password to verify")
	}
	if h.Verify("wrong", hash) {
		t.Fatalf("expected wrong password to be rejected")
	}
}

func TestBcryptHasher_CostIsEncoded(t *testing.T) {
	h := NewBcryptHasher()

	hash, err := h.Hash("pw", 5)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost returned error: %v", err)
	}
	if cost != 5 {
		t.Fatalf("expected cost 5, got %d", cost)
	}
}

func TestBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	h := NewBcryptHasher()

	hash, err := h.Hash("pw", 99)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	cost, _ := bcrypt.Cost([]byte(hash))
	if cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", cost)
	}
}

func TestBcryptHasher_MalformedHashNeverMatches(t *testing.T) {
	h := NewBcryptHasher()

	if h.Verify("pw", "not-a-bcrypt-hash") {
		t.Fatalf("malformed hash must not verify")
	}
	if h.Verify("", "") {
		t.Fatalf("empty hash must not verify")
	}
}
