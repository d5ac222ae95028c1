package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var ErrNotConfigured = errors.New("whatsapp phone number id or access token not configured")

// Sender delivers outbound text messages.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

type Client struct {
	BaseURL       string
	PhoneNumberID string
	AccessToken   string
	HTTP          *http.Client
}

func (c *Client) Configured() bool {
	return strings.TrimSpace(c.PhoneNumberID) != "" && strings.TrimSpace(c.AccessToken) != ""
}

type sendRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (c *Client) SendText(ctx context.Context, to, body string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
	base := c.BaseURL
	if base == "" {
		base = "https://graph.facebook.com/v18.0"
	}

	payload := sendRequest{MessagingProduct: "whatsapp", To: to}
	payload.Text.Body = body
	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode whatsapp message")
	}

	endpoint := fmt.Sprintf("%s/%s/messages", strings.TrimRight(base, "/"), c.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "build whatsapp request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(err, "whatsapp send")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Newf("whatsapp send failed: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}
