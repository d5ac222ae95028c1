package whatsapp

import "strings"

// Webhook is the notification body the Cloud API posts to us.
type Webhook struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// TextMessage is an inbound text ready for the intake flow.
type TextMessage struct {
	ID          string
	From        string
	ProfileName string
	Body        string
}

// ExtractTextMessages returns every usable text message in the notification.
// Status updates, media and messages without sender or body are skipped.
func ExtractTextMessages(w Webhook) []TextMessage {
	var out []TextMessage
	for _, e := range w.Entry {
		for _, ch := range e.Changes {
			names := map[string]string{}
			for _, c := range ch.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range ch.Value.Messages {
				if m.Type != "text" || m.Text == nil {
					continue
				}
				from := strings.TrimSpace(m.From)
				body := strings.TrimSpace(m.Text.Body)
				if from == "" || body == "" {
					continue
				}
				out = append(out, TextMessage{ID: m.ID, From: from, ProfileName: names[m.From], Body: body})
			}
		}
	}
	return out
}
