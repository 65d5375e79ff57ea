package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestShareLinkRoundTrip(t *testing.T) {
	svc := NewShareLinkService([]byte("test-secret-key-for-share-links"), "medira-clinic", time.Hour)
	invoiceID := uuid.New()

	token, err := svc.Mint(invoiceID)
	if err != nil {
		t.Fatalf("Mint: unexpected error %v", err)
	}

	got, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: unexpected error %v", err)
	}
	if got != invoiceID {
		t.Errorf("Validate = %v, want %v", got, invoiceID)
	}
}

func TestShareLinkExpired(t *testing.T) {
	svc := NewShareLinkService([]byte("test-secret-key-for-share-links"), "medira-clinic", -time.Minute)

	token, err := svc.Mint(uuid.New())
	if err != nil {
		t.Fatalf("Mint: unexpected error %v", err)
	}

	if _, err := svc.Validate(token); err == nil {
		t.Fatal("expired link must not validate")
	}
}

func TestShareLinkWrongKey(t *testing.T) {
	minter := NewShareLinkService([]byte("key-one"), "medira-clinic", time.Hour)
	verifier := NewShareLinkService([]byte("key-two"), "medira-clinic", time.Hour)

	token, err := minter.Mint(uuid.New())
	if err != nil {
		t.Fatalf("Mint: unexpected error %v", err)
	}

	if _, err := verifier.Validate(token); err == nil {
		t.Fatal("token signed with another key must not validate")
	}
}

func TestShareLinkGarbage(t *testing.T) {
	svc := NewShareLinkService([]byte("test-secret-key-for-share-links"), "medira-clinic", time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.Validate(token); err == nil {
			t.Errorf("Validate(%q): want error", token)
		}
	}
}
