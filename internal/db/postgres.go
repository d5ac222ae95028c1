package db

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/caseclarity/backend/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

// pgxPool is the subset of *pgxpool.Pool the store uses; pgxmock satisfies it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type PostgresStore struct {
	Pool pgxPool
	raw  *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{Pool: pool, raw: pool}, nil
}

func (s *PostgresStore) Close() {
	s.Pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Migrate applies the embedded goose migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s.raw == nil {
		return errors.New("migrations need a live pool")
	}
	sqlDB := stdlib.OpenDBFromPool(s.raw)
	defer sqlDB.Close()

	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

const caseColumns = `id, lawyer_id, client_info, case_details, ai_analysis, messages, conversation_status,
	decision_status, decision_text, decision_at, decision_notes, created_at, updated_at`

func (s *PostgresStore) CreateCase(ctx context.Context, c models.Case) error {
	clientInfo, err := json.Marshal(c.ClientInfo)
	if err != nil {
		return err
	}
	details, err := json.Marshal(c.CaseDetails)
	if err != nil {
		return err
	}
	var analysis []byte
	if c.AIAnalysis != nil {
		if analysis, err = json.Marshal(c.AIAnalysis); err != nil {
			return err
		}
	}
	messages, err := json.Marshal(nonNilMessages(c.Conversation.Messages))
	if err != nil {
		return err
	}

	_, err = s.Pool.Exec(ctx, `
		INSERT INTO cases (id, lawyer_id, client_phone, client_info, case_details, ai_analysis, messages,
			conversation_status, decision_status, decision_text, decision_at, decision_notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, c.ID, c.LawyerID, c.ClientInfo.Phone, clientInfo, details, analysis, messages,
		c.Conversation.Status, c.LawyerDecision.Status, c.LawyerDecision.Decision, c.LawyerDecision.Timestamp,
		c.LawyerDecision.Notes, c.CreatedAt, c.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func (s *PostgresStore) GetCase(ctx context.Context, id string) (models.Case, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	c, err := scanCase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Case{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) ListCases(ctx context.Context, f models.CaseFilter) ([]models.Case, error) {
	f = normalizeFilter(f)
	query := `SELECT ` + caseColumns + ` FROM cases`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" WHERE decision_status = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountCasesByStatus(ctx context.Context) (models.StatusCounts, error) {
	rows, err := s.Pool.Query(ctx, `SELECT decision_status, COUNT(*) FROM cases GROUP BY decision_status`)
	if err != nil {
		return models.StatusCounts{}, err
	}
	defer rows.Close()

	var counts models.StatusCounts
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return models.StatusCounts{}, err
		}
		counts.Add(status, n)
	}
	return counts, rows.Err()
}

func (s *PostgresStore) FindOpenCaseByPhone(ctx context.Context, phone string) (models.Case, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases
		WHERE client_phone = $1 AND conversation_status = $2
		ORDER BY created_at DESC LIMIT 1`, phone, models.ConversationOngoing)
	c, err := scanCase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Case{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) AppendMessages(ctx context.Context, id string, msgs ...models.Message) error {
	b, err := json.Marshal(nonNilMessages(msgs))
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE cases SET messages = messages || $1::jsonb, updated_at = NOW() WHERE id = $2`, b, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetConversationStatus(ctx context.Context, id string, status string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE cases SET conversation_status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetAnalysis(ctx context.Context, id string, analysis models.CaseAnalysis) error {
	b, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE cases SET ai_analysis = $1, updated_at = NOW() WHERE id = $2`, b, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DecideCase(ctx context.Context, id string, d models.LawyerDecision) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE cases
		SET decision_status = $1, decision_text = $2, decision_at = $3, decision_notes = $4, updated_at = NOW()
		WHERE id = $5 AND decision_status = $6
	`, d.Status, d.Decision, d.Timestamp, d.Notes, id, models.DecisionPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetCase(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO users (id, name, email, phone, role, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, u.ID, u.Name, normalizeEmail(u.Email), u.Phone, u.Role, u.Status, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

const userColumns = `id, name, email, phone, role, status, created_at`

func (s *PostgresStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg string) (models.User, error) {
	var u models.User
	err := s.Pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Status, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveCredentials(ctx context.Context, c models.JudicialCredentials) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO judicial_credentials (user_id, mev_user, mev_password, pjn_user, pjn_password, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id) DO UPDATE SET
			mev_user = EXCLUDED.mev_user,
			mev_password = EXCLUDED.mev_password,
			pjn_user = EXCLUDED.pjn_user,
			pjn_password = EXCLUDED.pjn_password,
			updated_at = EXCLUDED.updated_at
	`, c.UserID, c.MEVUser, c.MEVPassword, c.PJNUser, c.PJNPassword, c.UpdatedAt)
	return err
}

func (s *PostgresStore) GetCredentials(ctx context.Context, userID string) (models.JudicialCredentials, error) {
	var c models.JudicialCredentials
	err := s.Pool.QueryRow(ctx, `
		SELECT user_id, mev_user, mev_password, pjn_user, pjn_password, updated_at
		FROM judicial_credentials WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.MEVUser, &c.MEVPassword, &c.PJNUser, &c.PJNPassword, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.JudicialCredentials{}, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) ListCredentialOwners(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT user_id FROM judicial_credentials ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveMonitorRun(ctx context.Context, r models.MonitorRun) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO monitor_runs (id, user_id, status, message, checked_cases, new_updates, checked_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, r.ID, r.UserID, r.Status, r.Message, r.CheckedCases, r.NewUpdates, r.CheckedAt)
	return err
}

func (s *PostgresStore) LatestMonitorRun(ctx context.Context, userID string) (models.MonitorRun, error) {
	query := `SELECT id, user_id, status, message, checked_cases, new_updates, checked_at FROM monitor_runs`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY checked_at DESC LIMIT 1`

	var r models.MonitorRun
	err := s.Pool.QueryRow(ctx, query, args...).Scan(&r.ID, &r.UserID, &r.Status, &r.Message, &r.CheckedCases, &r.NewUpdates, &r.CheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.MonitorRun{}, ErrNotFound
	}
	return r, err
}

func scanCase(row pgx.Row) (models.Case, error) {
	var (
		c          models.Case
		clientInfo []byte
		details    []byte
		analysis   []byte
		messages   []byte
		decidedAt  *time.Time
	)
	if err := row.Scan(
		&c.ID, &c.LawyerID, &clientInfo, &details, &analysis, &messages, &c.Conversation.Status,
		&c.LawyerDecision.Status, &c.LawyerDecision.Decision, &decidedAt, &c.LawyerDecision.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return models.Case{}, err
	}
	if err := json.Unmarshal(clientInfo, &c.ClientInfo); err != nil {
		return models.Case{}, fmt.Errorf("decode client_info: %w", err)
	}
	if err := json.Unmarshal(details, &c.CaseDetails); err != nil {
		return models.Case{}, fmt.Errorf("decode case_details: %w", err)
	}
	if len(analysis) > 0 {
		var a models.CaseAnalysis
		if err := json.Unmarshal(analysis, &a); err != nil {
			return models.Case{}, fmt.Errorf("decode ai_analysis: %w", err)
		}
		c.AIAnalysis = &a
	}
	if err := json.Unmarshal(messages, &c.Conversation.Messages); err != nil {
		return models.Case{}, fmt.Errorf("decode messages: %w", err)
	}
	c.Conversation.Messages = nonNilMessages(c.Conversation.Messages)
	if c.CaseDetails.Documents == nil {
		c.CaseDetails.Documents = []models.Document{}
	}
	c.LawyerDecision.Timestamp = decidedAt
	return c, nil
}

func nonNilMessages(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}
