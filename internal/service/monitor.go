package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/caseclarity/backend/internal/db"
	"github.com/caseclarity/backend/internal/models"
	"github.com/caseclarity/backend/internal/utils"
)

const (
	MonitorSuccess = "success"
	MonitorFailure = "failure"
)

type CredentialsInput struct {
	MEVUser     *string `json:"mevUser"`
	MEVPassword *string `json:"mevPassword"`
	PJNUser     *string `json:"pjnUser"`
	PJNPassword *string `json:"pjnPassword"`
}

// CredentialsView is what the settings page gets back: usernames and whether
// a password is stored, never the password itself.
type CredentialsView struct {
	MEVUser        string     `json:"mevUser"`
	HasMEVPassword bool       `json:"hasMevPassword"`
	PJNUser        string     `json:"pjnUser"`
	HasPJNPassword bool       `json:"hasPjnPassword"`
	UpdatedAt      *time.Time `json:"updatedAt"`
}

// MonitorService keeps court-portal credentials and runs the MEV check.
// The portal session is simulated: counts are derived from the username and
// the day so repeated runs are stable.
type MonitorService struct {
	Store  db.Store
	Sealer *utils.Sealer
	Logger zerolog.Logger
	Now    func() time.Time

	cron *cron.Cron
}

func (s *MonitorService) GetCredentials(ctx context.Context, uid string) (CredentialsView, error) {
	c, err := s.Store.GetCredentials(ctx, uid)
	if errors.Is(err, db.ErrNotFound) {
		return CredentialsView{}, nil
	}
	if err != nil {
		return CredentialsView{}, err
	}
	return viewOf(c), nil
}

// SaveCredentials merges the provided fields over the stored ones. Nil fields
// keep their current value.
func (s *MonitorService) SaveCredentials(ctx context.Context, uid string, in CredentialsInput) (CredentialsView, error) {
	if s.Sealer == nil {
		return CredentialsView{}, ErrNotConfigured
	}
	current, err := s.Store.GetCredentials(ctx, uid)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return CredentialsView{}, err
	}
	current.UserID = uid

	if in.MEVUser != nil {
		current.MEVUser = strings.TrimSpace(*in.MEVUser)
	}
	if in.PJNUser != nil {
		current.PJNUser = strings.TrimSpace(*in.PJNUser)
	}
	if in.MEVPassword != nil {
		if current.MEVPassword, err = s.Sealer.Seal(*in.MEVPassword); err != nil {
			return CredentialsView{}, err
		}
	}
	if in.PJNPassword != nil {
		if current.PJNPassword, err = s.Sealer.Seal(*in.PJNPassword); err != nil {
			return CredentialsView{}, err
		}
	}
	current.UpdatedAt = s.now()

	if err := s.Store.SaveCredentials(ctx, current); err != nil {
		return CredentialsView{}, err
	}
	return viewOf(current), nil
}

// Run performs one MEV check for uid and records the result.
func (s *MonitorService) Run(ctx context.Context, uid string) (models.MonitorRun, error) {
	now := s.now()
	run := models.MonitorRun{ID: uuid.NewString(), UserID: uid, CheckedAt: now}

	creds, err := s.Store.GetCredentials(ctx, uid)
	switch {
	case errors.Is(err, db.ErrNotFound) || (err == nil && (creds.MEVUser == "" || creds.MEVPassword == "")):
		run.Status = MonitorFailure
		run.Message = "No hay credenciales de MEV configuradas."
	case err != nil:
		return models.MonitorRun{}, err
	default:
		if _, openErr := s.open(creds.MEVPassword); openErr != nil {
			run.Status = MonitorFailure
			run.Message = "No se pudieron leer las credenciales guardadas."
			break
		}
		h := utils.HashStringToUint64(creds.MEVUser + "|" + now.Format("2006-01-02"))
		run.Status = MonitorSuccess
		run.CheckedCases = 10 + int(h%20)
		run.NewUpdates = int((h / 20) % 3)
		run.Message = fmt.Sprintf("Conexión exitosa. Se revisaron %d expedientes y se encontraron %d novedades.", run.CheckedCases, run.NewUpdates)
	}

	if err := s.Store.SaveMonitorRun(ctx, run); err != nil {
		return models.MonitorRun{}, err
	}
	s.Logger.Info().Str("uid", uid).Str("status", run.Status).Int("new_updates", run.NewUpdates).Msg("mev check finished")
	return run, nil
}

// Schedule starts the periodic check for every credential owner. An empty
// spec leaves the scheduler off.
func (s *MonitorService) Schedule(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	s.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := s.cron.AddFunc(spec, s.runAll); err != nil {
		return err
	}
	s.cron.Start()
	s.Logger.Info().Str("schedule", spec).Msg("mev monitor scheduled")
	return nil
}

func (s *MonitorService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *MonitorService) runAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	owners, err := s.Store.ListCredentialOwners(ctx)
	if err != nil {
		s.Logger.Error().Err(err).Msg("failed to list credential owners")
		return
	}
	for _, uid := range owners {
		if _, err := s.Run(ctx, uid); err != nil {
			s.Logger.Error().Err(err).Str("uid", uid).Msg("mev check failed")
		}
	}
}

func (s *MonitorService) open(sealed string) (string, error) {
	if s.Sealer == nil {
		return "", ErrNotConfigured
	}
	return s.Sealer.Open(sealed)
}

func (s *MonitorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func viewOf(c models.JudicialCredentials) CredentialsView {
	v := CredentialsView{
		MEVUser:        c.MEVUser,
		HasMEVPassword: c.MEVPassword != "",
		PJNUser:        c.PJNUser,
		HasPJNPassword: c.PJNPassword != "",
	}
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}
