package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := HashPassword("senha123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "senha123" {
		t.Fatal("hash must not equal plaintext")
	}

	ok, err := ComparePassword(hash, "senha123")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = ComparePassword(hash, "wrong")
	if err != nil || ok {
		t.Fatalf("expected clean mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestCompareCorruptHash(t *testing.T) {
	ok, err := ComparePassword("not-a-bcrypt-hash", "senha123")
	if ok {
		t.Fatal("corrupt hash must never match")
	}
	if !errors.Is(err, ErrCorruptHash) {
		t.Fatalf("expected ErrCorruptHash, got %v", err)
	}
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("senha123", 99)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost for out-of-range input, got %d", cost)
	}
}
