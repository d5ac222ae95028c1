package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caseclarity/backend/internal/ai"
	"github.com/caseclarity/backend/internal/db"
	"github.com/caseclarity/backend/internal/models"
	"github.com/caseclarity/backend/internal/whatsapp"
)

// IntakeService relays inbound WhatsApp texts through the intake assistant and
// keeps the conversation on the sender's open case.
type IntakeService struct {
	Store  db.Store
	Intake ai.Intake
	Sender whatsapp.Sender
	Logger zerolog.Logger
	Now    func() time.Time
}

// HandleInbound never returns an error: the webhook must acknowledge every
// delivery, so failures are logged and the message is dropped.
func (s *IntakeService) HandleInbound(ctx context.Context, msg whatsapp.TextMessage) {
	log := s.Logger.With().Str("from", msg.From).Str("message_id", msg.ID).Logger()
	now := s.now()

	c, persist := s.openCase(ctx, msg, now, log)
	history := HistoryFromMessages(c.Conversation.Messages)

	reply, err := s.Intake.Reply(ctx, msg.Body, history)
	if err != nil {
		log.Error().Err(err).Msg("intake reply failed")
		return
	}

	if persist {
		err := s.Store.AppendMessages(ctx, c.ID,
			models.Message{Sender: models.SenderClient, Message: msg.Body, Timestamp: now, Type: models.MessageText},
			models.Message{Sender: models.SenderAI, Message: reply, Timestamp: s.now(), Type: models.MessageText},
		)
		if err != nil {
			log.Error().Err(err).Str("case_id", c.ID).Msg("failed to store conversation")
		}
	}

	if err := s.Sender.SendText(ctx, msg.From, reply); err != nil {
		log.Error().Err(err).Msg("failed to send whatsapp reply")
		return
	}
	log.Info().Str("case_id", c.ID).Int("history", len(history)).Msg("intake reply sent")
}

func (s *IntakeService) openCase(ctx context.Context, msg whatsapp.TextMessage, now time.Time, log zerolog.Logger) (models.Case, bool) {
	c, err := s.Store.FindOpenCaseByPhone(ctx, msg.From)
	if err == nil {
		return c, true
	}
	if !errors.Is(err, db.ErrNotFound) {
		log.Error().Err(err).Msg("failed to load open case")
		return models.NewCase("", msg.From, msg.ProfileName, now), false
	}

	c = models.NewCase(uuid.NewString(), msg.From, msg.ProfileName, now)
	err = s.Store.CreateCase(ctx, c)
	if errors.Is(err, db.ErrConflict) {
		// another delivery from the same sender opened it first
		if open, findErr := s.Store.FindOpenCaseByPhone(ctx, msg.From); findErr == nil {
			return open, true
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to open case")
		return c, false
	}
	log.Info().Str("case_id", c.ID).Msg("case opened")
	return c, true
}

func (s *IntakeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// HistoryFromMessages maps stored messages to provider turns.
func HistoryFromMessages(msgs []models.Message) []ai.Turn {
	out := make([]ai.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := ai.RoleModel
		if m.Sender == models.SenderClient {
			role = ai.RoleUser
		}
		out = append(out, ai.Turn{Role: role, Content: m.Message})
	}
	return out
}
