package service

import (
	"context"
	"strings"
	"time"

	"github.com/caseclarity/backend/internal/ai"
	"github.com/caseclarity/backend/internal/db"
)

const (
	HealthOperational = "operational"
	HealthDegraded    = "degraded"
	HealthDown        = "down"
)

type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type HealthReport struct {
	Status     string            `json:"status"`
	Components []ComponentHealth `json:"components"`
	Uptime     string            `json:"uptime"`
	CheckedAt  time.Time         `json:"checkedAt"`
}

type configurable interface {
	Configured() bool
}

type HealthService struct {
	Store       db.Store
	LLM         ai.LLM
	WhatsApp    configurable
	AuthEnabled bool
	StartedAt   time.Time
}

func (s *HealthService) Check(ctx context.Context) HealthReport {
	components := []ComponentHealth{{Name: "api", Status: HealthOperational}}

	dbHealth := ComponentHealth{Name: "database", Status: HealthOperational}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if s.Store == nil {
		dbHealth.Status, dbHealth.Detail = HealthDown, "not configured"
	} else if err := s.Store.Ping(pingCtx); err != nil {
		dbHealth.Status, dbHealth.Detail = HealthDown, err.Error()
	}
	components = append(components, dbHealth)

	wa := ComponentHealth{Name: "whatsapp", Status: HealthOperational}
	if s.WhatsApp == nil || !s.WhatsApp.Configured() {
		wa.Status, wa.Detail = HealthDegraded, "outbound messaging not configured"
	}
	components = append(components, wa)

	llm := ComponentHealth{Name: "llm", Status: HealthOperational}
	switch {
	case s.LLM == nil:
		llm.Status, llm.Detail = HealthDown, "no provider"
	case strings.HasPrefix(s.LLM.Name(), "mock"):
		llm.Status, llm.Detail = HealthDegraded, "using mock provider"
	default:
		llm.Detail = s.LLM.Name()
	}
	components = append(components, llm)

	authHealth := ComponentHealth{Name: "auth", Status: HealthOperational}
	if !s.AuthEnabled {
		authHealth.Status, authHealth.Detail = HealthDown, "firebase not configured"
	}
	components = append(components, authHealth)

	overall := HealthOperational
	for _, c := range components {
		if c.Status != HealthOperational {
			overall = HealthDegraded
		}
	}
	if dbHealth.Status == HealthDown {
		overall = HealthDown
	}

	report := HealthReport{Status: overall, Components: components, CheckedAt: time.Now().UTC()}
	if !s.StartedAt.IsZero() {
		report.Uptime = time.Since(s.StartedAt).Round(time.Second).String()
	}
	return report
}
