// Package dbtest provides an in-memory db.Store for tests.
package dbtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/caseclarity/backend/internal/db"
	"github.com/caseclarity/backend/internal/models"
)

type Store struct {
	mu          sync.Mutex
	cases       map[string]models.Case
	users       map[string]models.User
	credentials map[string]models.JudicialCredentials
	runs        []models.MonitorRun

	PingErr error
}

var _ db.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		cases:       map[string]models.Case{},
		users:       map[string]models.User{},
		credentials: map[string]models.JudicialCredentials{},
	}
}

func (s *Store) Ping(ctx context.Context) error { return s.PingErr }
func (s *Store) Close()                         {}

func (s *Store) CreateCase(ctx context.Context, c models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return db.ErrConflict
	}
	if c.Conversation.Status == models.ConversationOngoing {
		for _, existing := range s.cases {
			if existing.ClientInfo.Phone == c.ClientInfo.Phone && existing.Conversation.Status == models.ConversationOngoing {
				return db.ErrConflict
			}
		}
	}
	s.cases[c.ID] = cloneCase(c)
	return nil
}

func (s *Store) GetCase(ctx context.Context, id string) (models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return models.Case{}, db.ErrNotFound
	}
	return cloneCase(c), nil
}

func (s *Store) ListCases(ctx context.Context, f models.CaseFilter) ([]models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Status == "all" {
		f.Status = ""
	}
	out := []models.Case{}
	for _, c := range s.cases {
		if f.Status == "" || c.LawyerDecision.Status == f.Status {
			out = append(out, cloneCase(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.Case{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CountCasesByStatus(ctx context.Context) (models.StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var counts models.StatusCounts
	for _, c := range s.cases {
		counts.Add(c.LawyerDecision.Status, 1)
	}
	return counts, nil
}

func (s *Store) FindOpenCaseByPhone(ctx context.Context, phone string) (models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		found models.Case
		ok    bool
	)
	for _, c := range s.cases {
		if c.ClientInfo.Phone == phone && c.Conversation.Status == models.ConversationOngoing {
			if !ok || c.CreatedAt.After(found.CreatedAt) {
				found, ok = c, true
			}
		}
	}
	if !ok {
		return models.Case{}, db.ErrNotFound
	}
	return cloneCase(found), nil
}

func (s *Store) update(id string, fn func(c *models.Case)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return db.ErrNotFound
	}
	fn(&c)
	c.UpdatedAt = time.Now().UTC()
	s.cases[id] = c
	return nil
}

func (s *Store) AppendMessages(ctx context.Context, id string, msgs ...models.Message) error {
	return s.update(id, func(c *models.Case) {
		c.Conversation.Messages = append(c.Conversation.Messages, msgs...)
	})
}

func (s *Store) SetConversationStatus(ctx context.Context, id string, status string) error {
	return s.update(id, func(c *models.Case) { c.Conversation.Status = status })
}

func (s *Store) SetAnalysis(ctx context.Context, id string, analysis models.CaseAnalysis) error {
	return s.update(id, func(c *models.Case) { c.AIAnalysis = &analysis })
}

func (s *Store) DecideCase(ctx context.Context, id string, d models.LawyerDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return db.ErrNotFound
	}
	if c.LawyerDecision.Status != models.DecisionPending {
		return db.ErrConflict
	}
	c.LawyerDecision = d
	s.cases[id] = c
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return db.ErrConflict
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, db.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SaveCredentials(ctx context.Context, c models.JudicialCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[c.UserID] = c
	return nil
}

func (s *Store) GetCredentials(ctx context.Context, userID string) (models.JudicialCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[userID]
	if !ok {
		return models.JudicialCredentials{}, db.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCredentialOwners(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.credentials))
	for id := range s.credentials {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SaveMonitorRun(ctx context.Context, r models.MonitorRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, r)
	return nil
}

func (s *Store) LatestMonitorRun(ctx context.Context, userID string) (models.MonitorRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.runs) - 1; i >= 0; i-- {
		if userID == "" || s.runs[i].UserID == userID {
			return s.runs[i], nil
		}
	}
	return models.MonitorRun{}, db.ErrNotFound
}

func cloneCase(c models.Case) models.Case {
	c.Conversation.Messages = append([]models.Message{}, c.Conversation.Messages...)
	return c
}
