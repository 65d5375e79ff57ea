package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: unexpected error %v", err)
	}

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("correct password must verify")
	}
	if VerifyPassword("wrong password", hash) {
		t.Error("wrong password must not verify")
	}
	if hash == "correct horse battery staple" {
		t.Error("hash must not equal the password")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password must differ by salt")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "not-a-hash", "$argon2id$garbage"} {
		if VerifyPassword("anything", hash) {
			t.Errorf("malformed hash %q must not verify", hash)
		}
	}
}

func TestPasswordPolicy(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"meets policy", "Str0ng-enough-pass", false},
		{"too short", "Sh0rt", true},
		{"no uppercase", "all-lower-case-1234", true},
		{"no lowercase", "ALL-UPPER-CASE-1234", true},
		{"no number", "No-Numbers-In-Here", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}
