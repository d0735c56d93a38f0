package leads

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/metrics"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

// PersistOutcome reports what happened to each storage channel.
type PersistOutcome struct {
	RemoteOK bool
	LocalOK  bool
	Remote   RemoteStatus
}

// Store writes every lead to the remote webhook and then, unconditionally, to
// the local backup.
type Store struct {
	webhook *Webhook
	backup  *Backup
	logger  *zap.Logger
}

func New(webhook *Webhook, backup *Backup, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{webhook: webhook, backup: backup, logger: logger}
}

// Persist never fails; problems are reported through the outcome and logs.
// Identical leads are stored as separate records.
func (s *Store) Persist(ctx context.Context, lead scholarship.Lead) PersistOutcome {
	log := s.logger.With(zap.String("lead_id", lead.ID), zap.String("email", lead.Email))
	payload := NewPayload(lead)

	remote := RemoteFailed
	if s.webhook != nil {
		remote = s.webhook.Send(ctx, payload)
	}

	outcome := PersistOutcome{
		RemoteOK: remote == RemoteConfirmed,
		Remote:   remote,
	}

	if s.backup != nil {
		if err := s.backup.Append(payload); err != nil {
			log.Error("local lead backup failed", zap.Error(err))
		} else {
			outcome.LocalOK = true
		}
	}

	metrics.LeadPersistTotal.WithLabelValues(string(remote), strconv.FormatBool(outcome.LocalOK)).Inc()

	log.Info("lead persisted",
		zap.String("remote", string(remote)),
		zap.Bool("local", outcome.LocalOK),
	)

	return outcome
}

// Records returns the locally backed up leads.
func (s *Store) Records() ([]Record, error) {
	if s.backup == nil {
		return nil, nil
	}
	return s.backup.Records()
}
