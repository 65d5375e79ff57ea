package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func captureClient(t *testing.T, cfg WhatsAppConfig) (*WhatsAppClient, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	cfg.PhoneNumberID = "12345"
	cfg.AccessToken = "token"
	return NewWhatsAppClient(cfg), &captured
}

func TestSendOTPQuotesConfiguredTTL(t *testing.T) {
	client, captured := captureClient(t, WhatsAppConfig{CodeTTL: 10 * time.Minute})

	if err := client.SendOTP(context.Background(), "+2348000000000", "493021"); err != nil {
		t.Fatalf("SendOTP: unexpected error %v", err)
	}

	text := (*captured)["text"].(map[string]any)
	body := text["body"].(string)
	if !strings.Contains(body, "493021") {
		t.Errorf("message %q must carry the code", body)
	}
	if !strings.Contains(body, "10 minutes") {
		t.Errorf("message %q must quote the configured expiry", body)
	}
}

func TestSendOTPDefaultTTL(t *testing.T) {
	client, captured := captureClient(t, WhatsAppConfig{})

	if err := client.SendOTP(context.Background(), "+2348000000000", "493021"); err != nil {
		t.Fatalf("SendOTP: unexpected error %v", err)
	}

	body := (*captured)["text"].(map[string]any)["body"].(string)
	if !strings.Contains(body, "5 minutes") {
		t.Errorf("message %q must fall back to the 5 minute default", body)
	}
}

func TestSendAppointmentReminderUsesTemplate(t *testing.T) {
	client, captured := captureClient(t, WhatsAppConfig{ReminderTemplate: "appointment_reminder"})

	when := time.Date(2026, 9, 14, 10, 30, 0, 0, time.UTC)
	if err := client.SendAppointmentReminder(context.Background(), "+2348000000000", "Amina", "Okafor", when); err != nil {
		t.Fatalf("SendAppointmentReminder: unexpected error %v", err)
	}

	if got := (*captured)["type"]; got != "template" {
		t.Fatalf("message type = %v, want template", got)
	}
	tpl := (*captured)["template"].(map[string]any)
	if tpl["name"] != "appointment_reminder" {
		t.Errorf("template name = %v, want appointment_reminder", tpl["name"])
	}
	components := tpl["components"].([]any)
	params := components[0].(map[string]any)["parameters"].([]any)
	if len(params) != 3 {
		t.Fatalf("template parameters = %d, want 3", len(params))
	}
	if first := params[0].(map[string]any)["text"]; first != "Amina" {
		t.Errorf("first parameter = %v, want patient name", first)
	}
}

func TestSendAppointmentReminderFallsBackToText(t *testing.T) {
	client, captured := captureClient(t, WhatsAppConfig{})

	when := time.Date(2026, 9, 14, 10, 30, 0, 0, time.UTC)
	if err := client.SendAppointmentReminder(context.Background(), "+2348000000000", "Amina", "Okafor", when); err != nil {
		t.Fatalf("SendAppointmentReminder: unexpected error %v", err)
	}

	if got := (*captured)["type"]; got != "text" {
		t.Fatalf("message type = %v, want text", got)
	}
}
