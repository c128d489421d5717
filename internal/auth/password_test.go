package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Secret1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "" || hash == "Secret1" {
		t.Fatalf("hash must be a non-empty opaque string, got %q", hash)
	}

	if !CheckPassword("Secret1", hash) {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected non-matching password to fail")
	}
}

func TestHashPassword_SaltedOutputsDiffer(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	second, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if first == second {
		t.Fatalf("two hashes of the same input must differ, both were %q", first)
	}
	if !CheckPassword("same-input", first) || !CheckPassword("same-input", second) {
		t.Fatalf("both hashes must still verify the original input")
	}
}

func TestCheckPassword_DifferentPlaintext(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("one")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if CheckPassword("two", hash) {
		t.Fatalf("hash of %q must not verify %q", "one", "two")
	}
}
