package patients

import (
	"log/slog"
	"os"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestPatientFromRequest(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(os.Stderr, nil)), nil)

	t.Run("valid", func(t *testing.T) {
		p, errMsg := h.patientFromRequest(&PatientRequest{
			Name:        "  Amina El Idrissi  ",
			Phone:       "+212612345678",
			Email:       strPtr("amina@example.test"),
			DateOfBirth: strPtr("1990-04-12"),
		})
		if errMsg != "" {
			t.Fatalf("unexpected error: %s", errMsg)
		}
		if p.Name != "Amina El Idrissi" {
			t.Errorf("Name = %q, want trimmed", p.Name)
		}
		if p.DateOfBirth == nil || p.DateOfBirth.Year() != 1990 {
			t.Errorf("DateOfBirth not parsed: %v", p.DateOfBirth)
		}
	})

	tests := []struct {
		name string
		req  PatientRequest
	}{
		{"missing name", PatientRequest{Phone: "+212612345678"}},
		{"bad phone", PatientRequest{Name: "A", Phone: "not-a-phone"}},
		{"bad email", PatientRequest{Name: "A", Phone: "+212612345678", Email: strPtr("nope")}},
		{"bad dob", PatientRequest{Name: "A", Phone: "+212612345678", DateOfBirth: strPtr("12/04/1990")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, errMsg := h.patientFromRequest(&tt.req); errMsg == "" {
				t.Error("want validation error")
			}
		})
	}
}
