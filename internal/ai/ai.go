package ai

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

var (
	ErrInvalidInput  = errors.New("invalid llm input")
	ErrInvalidOutput = errors.New("invalid llm output")
	ErrProvider      = errors.New("llm provider failed")
)

// Turn is one prior exchange in a conversation sent to the provider.
type Turn struct {
	Role    string `json:"role" validate:"required,oneof=user model"`
	Content string `json:"content" validate:"required"`
}

type Request struct {
	// Prompt names the template the text was rendered from; it labels metrics.
	Prompt  string
	Text    string
	History []Turn
	Schema  *jsonschema.Schema
}

// LLM is a text-generation provider. When Request.Schema is set the provider
// is asked for JSON matching it.
type LLM interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// providerError marks err as a provider failure so callers can match ErrProvider.
func providerError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidOutput) {
		return err
	}
	return errors.Mark(errors.Wrap(err, msg), ErrProvider)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
