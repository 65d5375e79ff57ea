package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhatsAppConfig holds WhatsApp Business Cloud API credentials.
type WhatsAppConfig struct {
	BaseURL       string // e.g. https://graph.facebook.com/v19.0
	PhoneNumberID string
	AccessToken   string

	// CodeTTL is quoted in the login-code message. Zero means 5
	// minutes.
	CodeTTL time.Duration

	// ReminderTemplate is the name of an approved message template
	// for appointment reminders. Empty falls back to a plain text
	// message, which WhatsApp only delivers inside an open
	// conversation window.
	ReminderTemplate string
}

// WhatsAppClient sends messages through the WhatsApp Business Cloud
// API.
type WhatsAppClient struct {
	config WhatsAppConfig
	http   *http.Client
}

// NewWhatsAppClient creates a WhatsApp client.
func NewWhatsAppClient(config WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		config: config,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type waTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             waText `json:"text"`
}

type waText struct {
	Body string `json:"body"`
}

type waTemplateMessage struct {
	MessagingProduct string     `json:"messaging_product"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Template         waTemplate `json:"template"`
}

type waTemplate struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components,omitempty"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters,omitempty"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendText sends a plain text message to a phone number.
func (c *WhatsAppClient) SendText(ctx context.Context, phone, body string) error {
	msg := waTextMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             waText{Body: body},
	}
	return c.post(ctx, msg)
}

// SendTemplate sends an approved message template with positional body
// parameters.
func (c *WhatsAppClient) SendTemplate(ctx context.Context, phone, name, languageCode string, params ...string) error {
	tpl := waTemplate{
		Name:     name,
		Language: waLanguage{Code: languageCode},
	}
	if len(params) > 0 {
		component := waComponent{Type: "body"}
		for _, p := range params {
			component.Parameters = append(component.Parameters, waParameter{Type: "text", Text: p})
		}
		tpl.Components = []waComponent{component}
	}
	msg := waTemplateMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "template",
		Template:         tpl,
	}
	return c.post(ctx, msg)
}

// SendOTP delivers a one-time login code. Satisfies auth.CodeSender.
func (c *WhatsAppClient) SendOTP(ctx context.Context, phone, code string) error {
	ttl := c.config.CodeTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	minutes := int((ttl + time.Minute - 1) / time.Minute)
	return c.SendText(ctx, phone, fmt.Sprintf("Your clinic login code is %s. It expires in %d minutes. Do not share it.", code, minutes))
}

// SendAppointmentReminder delivers an appointment reminder, preferring
// the configured template so it reaches patients outside an open
// conversation window.
func (c *WhatsAppClient) SendAppointmentReminder(ctx context.Context, phone, patientName, doctorName string, scheduledAt time.Time) error {
	when := scheduledAt.Format("Mon, 2 Jan 2006 15:04")
	if c.config.ReminderTemplate != "" {
		return c.SendTemplate(ctx, phone, c.config.ReminderTemplate, "en", patientName, doctorName, when)
	}
	body := fmt.Sprintf("Hello %s, this is a reminder of your appointment with Dr. %s on %s.",
		patientName, doctorName, when)
	return c.SendText(ctx, phone, body)
}

func (c *WhatsAppClient) post(ctx context.Context, payload any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.config.BaseURL, c.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp send: status %d: %s", resp.StatusCode, body)
	}
	return nil
}
