package ai

import (
	"bytes"
	"embed"
	"text/template"
)

const (
	PromptIntake   = "intake"
	PromptAnalysis = "analysis"
	PromptDraft    = "draft"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Option("missingkey=error").ParseFS(promptFS, "prompts/*.tmpl"))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
