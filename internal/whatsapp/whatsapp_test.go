package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/h2non/gock"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "5491100000000", "phone_number_id": "123"},
        "contacts": [{"wa_id": "5491155554444", "profile": {"name": "Ana"}}],
        "messages": [
          {"from": "5491155554444", "id": "wamid.1", "timestamp": "1700000000", "type": "text", "text": {"body": "Hola, me despidieron"}},
          {"from": "5491155554444", "id": "wamid.2", "timestamp": "1700000001", "type": "image"},
          {"from": "", "id": "wamid.3", "timestamp": "1700000002", "type": "text", "text": {"body": "sin remitente"}},
          {"from": "5491155554444", "id": "wamid.4", "timestamp": "1700000003", "type": "text", "text": {"body": "   "}}
        ]
      }
    }]
  }, {
    "id": "WABA",
    "changes": [{"field": "messages", "value": {"messages": [
      {"from": "5491166667777", "id": "wamid.5", "type": "text", "text": {"body": "Consulta por divorcio"}}
    ]}}]
  }]
}`

func TestExtractTextMessages(t *testing.T) {
	var w Webhook
	if err := json.Unmarshal([]byte(samplePayload), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msgs := ExtractTextMessages(w)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 text messages, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].From != "5491155554444" || msgs[0].Body != "Hola, me despidieron" || msgs[0].ProfileName != "Ana" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].From != "5491166667777" || msgs[1].ProfileName != "" {
		t.Fatalf("unexpected second message: %+v", msgs[1])
	}
}

func TestExtractTextMessagesStatusOnly(t *testing.T) {
	var w Webhook
	_ = json.Unmarshal([]byte(`{"entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`), &w)
	if msgs := ExtractTextMessages(w); len(msgs) != 0 {
		t.Fatalf("expected no messages, got %+v", msgs)
	}
}

func TestVerifyHandshake(t *testing.T) {
	cases := []struct {
		mode, token, secret string
		want                bool
	}{
		{"subscribe", "s3cret", "s3cret", true},
		{"subscribe", "wrong", "s3cret", false},
		{"unsubscribe", "s3cret", "s3cret", false},
		{"subscribe", "", "", false},
	}
	for _, tc := range cases {
		if got := VerifyHandshake(tc.mode, tc.token, tc.secret); got != tc.want {
			t.Fatalf("VerifyHandshake(%q,%q,%q) = %v, want %v", tc.mode, tc.token, tc.secret, got, tc.want)
		}
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(samplePayload)
	header := Sign(body, "app-secret")
	if !VerifySignature(body, header, "app-secret") {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature(body, header, "other") {
		t.Fatalf("expected mismatch with other secret")
	}
	if VerifySignature(body, strings.TrimPrefix(header, "sha256="), "app-secret") {
		t.Fatalf("expected missing prefix to fail")
	}
	if VerifySignature(body, "sha256=zz", "app-secret") {
		t.Fatalf("expected bad hex to fail")
	}
}

func TestClientSendText(t *testing.T) {
	defer gock.Off()
	gock.New("https://graph.example.com").
		Post("/v18.0/123/messages").
		MatchHeader("Authorization", "Bearer tok").
		JSON(map[string]any{"messaging_product": "whatsapp", "to": "5491155554444", "text": map[string]string{"body": "hola"}}).
		Reply(200).
		JSON(map[string]any{"messages": []map[string]string{{"id": "wamid.out"}}})

	c := &Client{BaseURL: "https://graph.example.com/v18.0", PhoneNumberID: "123", AccessToken: "tok"}
	if err := c.SendText(context.Background(), "5491155554444", "hola"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !gock.IsDone() {
		t.Fatalf("expected request to be sent")
	}
}

func TestClientSendTextProviderError(t *testing.T) {
	defer gock.Off()
	gock.New("https://graph.example.com").
		Post("/v18.0/123/messages").
		Reply(400).
		BodyString(`{"error":{"message":"Invalid parameter"}}`)

	c := &Client{BaseURL: "https://graph.example.com/v18.0", PhoneNumberID: "123", AccessToken: "tok"}
	err := c.SendText(context.Background(), "x", "hola")
	if err == nil || !strings.Contains(err.Error(), "Invalid parameter") {
		t.Fatalf("expected provider error with body, got %v", err)
	}
}

func TestClientNotConfigured(t *testing.T) {
	c := &Client{PhoneNumberID: "123"}
	if err := c.SendText(context.Background(), "x", "y"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestClientSendTextTransportError(t *testing.T) {
	defer gock.Off()
	gock.New("https://graph.example.com").
		Post("/v18.0/123/messages").
		ReplyError(errors.New("connection reset"))

	c := &Client{BaseURL: "https://graph.example.com/v18.0", PhoneNumberID: "123", AccessToken: "tok"}
	err := c.SendText(context.Background(), "x", "hola")
	if err == nil || !strings.Contains(err.Error(), "whatsapp send") || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}
