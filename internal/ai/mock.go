package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caseclarity/backend/internal/models"
	"github.com/caseclarity/backend/internal/utils"
)

// MockLLM answers deterministically from a hash of the prompt text. It is used
// when no provider key is configured and in tests.
type MockLLM struct {
	ModelVersion string
}

func (m MockLLM) Name() string { return "mock:" + m.ModelVersion }

func (m MockLLM) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h := utils.HashStringToUint64(req.Text)

	switch req.Prompt {
	case PromptAnalysis:
		complexities := []string{models.ComplexitySimple, models.ComplexityMedium, models.ComplexityComplex}
		out := models.CaseAnalysis{
			Summary:            "Resumen preliminar generado automáticamente.",
			Strengths:          []string{"Relato consistente", "Existe documentación de respaldo"},
			Weaknesses:         []string{"Faltan pruebas testimoniales"},
			Recommendations:    "Reunir la documentación y agendar una consulta.",
			SuccessProbability: int(h % 101),
			EstimatedDuration:  fmt.Sprintf("%d meses", 6+h%18),
			Complexity:         complexities[(h/7)%uint64(len(complexities))],
		}
		b, err := json.Marshal(out)
		return string(b), err
	case PromptDraft:
		return fmt.Sprintf("BORRADOR %d\n\nSeñor Juez:\n\nSe presenta el escrito correspondiente.", h%1000), nil
	default:
		questions := []string{
			"¿Podrías contarme un poco más sobre lo que pasó?",
			"¿Cuándo ocurrieron los hechos?",
			"¿Tenés documentación relacionada con el caso?",
		}
		if len(req.History) == 0 {
			return "¡Hola! Soy el asistente de CaseClarity. ¿En qué puedo ayudarte hoy?", nil
		}
		return questions[h%uint64(len(questions))], nil
	}
}
