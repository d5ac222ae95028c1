package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseclarity/backend/internal/models"
)

var caseRowColumns = []string{
	"id", "lawyer_id", "client_info", "case_details", "ai_analysis", "messages", "conversation_status",
	"decision_status", "decision_text", "decision_at", "decision_notes", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{Pool: mock}, mock
}

func TestPostgresGetCase(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM cases WHERE id = \$1`).
		WithArgs("case-1").
		WillReturnRows(mock.NewRows(caseRowColumns).AddRow(
			"case-1", "",
			[]byte(`{"name":"Ana","phone":"5491100000000","email":"","location":""}`),
			[]byte(`{"type":"Laboral","description":"despido sin causa","urgency":"high","estimatedValue":0,"documents":null,"timeline":""}`),
			nil,
			[]byte(`[{"sender":"client","message":"hola","timestamp":"2025-03-01T10:00:00Z","type":"text"}]`),
			"ongoing", "pending", "", nil, "", now, now,
		))

	c, err := store.GetCase(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.ClientInfo.Name)
	assert.Equal(t, "Laboral", c.CaseDetails.Type)
	assert.NotNil(t, c.CaseDetails.Documents)
	assert.Nil(t, c.AIAnalysis)
	require.Len(t, c.Conversation.Messages, 1)
	assert.Equal(t, models.SenderClient, c.Conversation.Messages[0].Sender)
	assert.Nil(t, c.LawyerDecision.Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetCaseNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM cases WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetCase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresDecideCase(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE cases`).
		WithArgs(models.DecisionAccepted, "Tomamos el caso", pgxmock.AnyArg(), "", "case-1", models.DecisionPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.DecideCase(context.Background(), "case-1", models.LawyerDecision{
		Status:    models.DecisionAccepted,
		Decision:  "Tomamos el caso",
		Timestamp: &now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDecideCaseAlreadyDecided(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE cases`).
		WithArgs(models.DecisionRejected, "", pgxmock.AnyArg(), "", "case-1", models.DecisionPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT .* FROM cases WHERE id = \$1`).
		WithArgs("case-1").
		WillReturnRows(mock.NewRows(caseRowColumns).AddRow(
			"case-1", "", []byte(`{}`), []byte(`{}`), nil, []byte(`[]`),
			"completed", "accepted", "ok", now, "", now, now,
		))

	err := store.DecideCase(context.Background(), "case-1", models.LawyerDecision{Status: models.DecisionRejected, Timestamp: &now})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDecideCaseMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE cases`).
		WithArgs(models.DecisionAccepted, "", pgxmock.AnyArg(), "", "nope", models.DecisionPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT .* FROM cases WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	err := store.DecideCase(context.Background(), "nope", models.LawyerDecision{Status: models.DecisionAccepted})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresAppendMessagesNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE cases SET messages = messages \|\| \$1::jsonb`).
		WithArgs(pgxmock.AnyArg(), "case-9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.AppendMessages(context.Background(), "case-9", models.Message{Sender: models.SenderClient, Message: "hola"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresCountCasesByStatus(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT decision_status, COUNT\(\*\) FROM cases GROUP BY decision_status`).
		WillReturnRows(mock.NewRows([]string{"decision_status", "count"}).
			AddRow("pending", 3).
			AddRow("accepted", 2).
			AddRow("rejected", 1))

	counts, err := store.CountCasesByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCounts{Pending: 3, Accepted: 2, Rejected: 1, Total: 6}, counts)
}

func TestPostgresListCasesFilter(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .* FROM cases WHERE decision_status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("pending", 50, 0).
		WillReturnRows(mock.NewRows(caseRowColumns))

	items, err := store.ListCases(context.Background(), models.CaseFilter{Status: "pending"})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestPostgresCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("uid-1", "Ana", "ana@example.com", "", models.RoleLawyer, models.UserActive, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := store.CreateUser(context.Background(), models.User{
		ID: "uid-1", Name: "Ana", Email: " Ana@Example.com ", Role: models.RoleLawyer, Status: models.UserActive,
		CreatedAt: time.Now().UTC(),
	})
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestPostgresCreateCaseSecondOpenCase(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectExec(`INSERT INTO cases`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "cases_open_phone_uidx"})

	err := store.CreateCase(context.Background(), models.NewCase("case-2", "5491100000000", "Ana", now))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
