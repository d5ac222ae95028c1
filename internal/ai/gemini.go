package ai

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiLLM struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*GeminiLLM, error) {
	if isBlank(apiKey) {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if isBlank(model) {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}
	return &GeminiLLM{client: client, model: model}, nil
}

func (g *GeminiLLM) Name() string { return "gemini:" + g.model }

func (g *GeminiLLM) Generate(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, h := range req.History {
		role := genai.Role(genai.RoleUser)
		if h.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(h.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Text, genai.RoleUser))

	var cfg *genai.GenerateContentConfig
	if req.Schema != nil {
		cfg = &genai.GenerateContentConfig{
			ResponseMIMEType:   "application/json",
			ResponseJsonSchema: req.Schema,
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate content")
	}
	text := resp.Text()
	if text == "" && len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return text, nil
}
