package service

import (
	"context"
	"errors"
	"sync"

	"github.com/caseclarity/backend/internal/ai"
	"github.com/caseclarity/backend/internal/auth"
)

type sentMessage struct {
	To   string
	Body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return f.err
}

type scriptedLLM struct {
	reply string
	err   error
	reqs  []ai.Request
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Generate(ctx context.Context, req ai.Request) (string, error) {
	s.reqs = append(s.reqs, req)
	return s.reply, s.err
}

type fakeIdentity struct {
	existing  map[string]bool
	accounts  map[string]auth.Account
	created   []auth.NewUser
	deleted   []string
	createErr error
}

func (f *fakeIdentity) EmailInUse(ctx context.Context, email string) (bool, error) {
	return f.existing[email], nil
}

func (f *fakeIdentity) CreateUser(ctx context.Context, u auth.NewUser) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, u)
	return "uid-" + u.Email, nil
}

func (f *fakeIdentity) GetAccount(ctx context.Context, uid string) (auth.Account, error) {
	acct, ok := f.accounts[uid]
	if !ok {
		return auth.Account{}, errors.New("no such account")
	}
	return acct, nil
}

func (f *fakeIdentity) DeleteUser(ctx context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return nil
}
