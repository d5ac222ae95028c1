package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caseclarity/backend/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record changed concurrently")
)

// Store is the persistence boundary for cases, users and court-portal data.
// Both backends give document semantics: plain updates are last-write-wins and
// only DecideCase is conditional.
type Store interface {
	Ping(ctx context.Context) error
	Close()

	CreateCase(ctx context.Context, c models.Case) error
	GetCase(ctx context.Context, id string) (models.Case, error)
	ListCases(ctx context.Context, f models.CaseFilter) ([]models.Case, error)
	CountCasesByStatus(ctx context.Context) (models.StatusCounts, error)
	FindOpenCaseByPhone(ctx context.Context, phone string) (models.Case, error)
	AppendMessages(ctx context.Context, id string, msgs ...models.Message) error
	SetConversationStatus(ctx context.Context, id string, status string) error
	SetAnalysis(ctx context.Context, id string, analysis models.CaseAnalysis) error
	DecideCase(ctx context.Context, id string, decision models.LawyerDecision) error

	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	SaveCredentials(ctx context.Context, creds models.JudicialCredentials) error
	GetCredentials(ctx context.Context, userID string) (models.JudicialCredentials, error)
	ListCredentialOwners(ctx context.Context) ([]string, error)

	SaveMonitorRun(ctx context.Context, run models.MonitorRun) error
	LatestMonitorRun(ctx context.Context, userID string) (models.MonitorRun, error)
}

// Open picks the backend from the URL scheme.
func Open(ctx context.Context, databaseURL, databaseName string) (Store, error) {
	u := strings.ToLower(strings.TrimSpace(databaseURL))
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		store, err := NewPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return store, nil
	case strings.HasPrefix(u, "mongodb://"), strings.HasPrefix(u, "mongodb+srv://"):
		return NewMongo(ctx, databaseURL, databaseName)
	case u == "":
		return nil, errors.New("DATABASE_URL is not set")
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme")
	}
}

func normalizeFilter(f models.CaseFilter) models.CaseFilter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Status == "all" {
		f.Status = ""
	}
	return f
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
