package ai

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompatGenerate(t *testing.T) {
	defer gock.Off()
	gock.New("https://llm.example.com").
		Post("/v1/chat/completions").
		MatchHeader("Authorization", "Bearer sk-test").
		JSON(map[string]any{
			"model":      "gpt-test",
			"max_tokens": 100,
			"messages": []map[string]string{
				{"role": "user", "content": "hola"},
				{"role": "assistant", "content": "¿En qué te ayudo?"},
				{"role": "user", "content": "prompt"},
			},
		}).
		Reply(200).
		JSON(map[string]any{"choices": []map[string]any{{"message": map[string]string{"content": "respuesta"}}}})

	llm := OpenAICompatLLM{BaseURL: "https://llm.example.com/v1/", Model: "gpt-test", APIKey: "sk-test", MaxTokens: 100}
	out, err := llm.Generate(context.Background(), Request{
		Prompt:  PromptIntake,
		Text:    "prompt",
		History: []Turn{{Role: RoleUser, Content: "hola"}, {Role: RoleModel, Content: "¿En qué te ayudo?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "respuesta", out)
	assert.True(t, gock.IsDone())
}

func TestOpenAICompatRateLimit(t *testing.T) {
	defer gock.Off()
	gock.New("https://llm.example.com").
		Post("/chat/completions").
		Reply(429).
		JSON(map[string]any{"error": map[string]any{"details": []map[string]any{
			{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "7s"},
		}}})

	llm := OpenAICompatLLM{BaseURL: "https://llm.example.com", Model: "m"}
	_, err := llm.Generate(context.Background(), Request{Prompt: PromptDraft, Text: "x"})

	var rl RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestOpenAICompatNotConfigured(t *testing.T) {
	_, err := OpenAICompatLLM{}.Generate(context.Background(), Request{Text: "x"})
	assert.Error(t, err)
}
