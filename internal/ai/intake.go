package ai

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Intake drives the client conversation on WhatsApp. It holds no state; the
// caller passes the prior turns on every call.
type Intake struct {
	LLM LLM
}

type intakeData struct {
	HasHistory bool
	Transcript string
	Message    string
}

func (i Intake) Reply(ctx context.Context, message string, history []Turn) (string, error) {
	if isBlank(message) {
		return "", errors.Wrap(ErrInvalidInput, "message is required")
	}
	text, err := render(PromptIntake, intakeData{
		HasHistory: len(history) > 0,
		Transcript: Transcript(history),
		Message:    message,
	})
	if err != nil {
		return "", err
	}
	return generate(ctx, i.LLM, Request{Prompt: PromptIntake, Text: text, History: history})
}

// Transcript renders turns as "Cliente: ..." / "Tú: ..." lines.
func Transcript(history []Turn) string {
	lines := make([]string, 0, len(history))
	for _, h := range history {
		if h.Role == RoleUser {
			lines = append(lines, "Cliente: "+h.Content)
		} else {
			lines = append(lines, "Tú: "+h.Content)
		}
	}
	return strings.Join(lines, "\n")
}
