package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/carebridge/telemed-platform/internal/appointments"
	"github.com/carebridge/telemed-platform/internal/observability/metrics"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Summary reports one sweep run.
type Summary struct {
	TotalStale int `json:"totalStale"`
	Updated    int `json:"updated"`
}

// Service is the reconciliation sweep: any appointment still ongoing with a
// session that started longer than StaleAfter ago is presumed abandoned and
// force-transitioned to no-show, with one audit record per correction.
type Service struct {
	appts      *appointments.Store
	log        *Store
	staleAfter time.Duration
	metrics    *metrics.AppointmentMetrics
	logger     *logging.Logger
	now        func() time.Time
}

// NewService creates the sweep service.
func NewService(appts *appointments.Store, log *Store, staleAfter time.Duration, m *metrics.AppointmentMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if staleAfter <= 0 {
		staleAfter = 45 * time.Minute
	}
	return &Service{
		appts:      appts,
		log:        log,
		staleAfter: staleAfter,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNow overrides the clock source. Intended for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run performs one sweep. It is idempotent and safe to run concurrently with
// itself or with in-flight session ends: each correction is a conditional
// write, and a record whose end won the race is simply skipped. Per-record
// failures are logged and do not abort the rest of the sweep.
func (s *Service) Run(ctx context.Context, trigger Trigger) (Summary, error) {
	started := s.now()
	cutoff := started.UTC().Add(-s.staleAfter)

	stale, err := s.appts.ListStaleOngoing(ctx, cutoff)
	if err != nil {
		return Summary{}, fmt.Errorf("cleanup: list stale: %w", err)
	}

	summary := Summary{TotalStale: len(stale)}
	if len(stale) == 0 {
		s.metrics.ObserveSweep(string(trigger), 0, time.Since(started).Seconds())
		return summary, nil
	}

	s.logger.Info("cleanup sweep processing stale sessions",
		"count", len(stale), "triggered_by", string(trigger))

	for i := range stale {
		a := &stale[i]

		reason := a.NoShowType
		if reason == "" {
			reason = appointments.NoShowTimeout
		}

		flipped, err := s.appts.MarkNoShow(ctx, a.ID, appointments.NoShowTimeout)
		if err != nil {
			s.logger.Error("cleanup sweep failed to update appointment",
				"appointment_id", a.ID, "error", err)
			continue
		}
		if !flipped {
			// A concurrent end (or another sweep) won the race.
			s.logger.Debug("cleanup sweep skipped appointment, no longer ongoing",
				"appointment_id", a.ID)
			continue
		}

		entry := &LogEntry{
			AppointmentID:  a.ID,
			PreviousStatus: string(a.Status),
			NewStatus:      string(appointments.StatusNoShow),
			NoShowType:     string(reason),
			AutoFixed:      true,
			TriggeredBy:    trigger,
		}
		if err := s.log.Append(ctx, entry); err != nil {
			s.logger.Error("cleanup sweep failed to append audit log",
				"appointment_id", a.ID, "error", err)
		}

		s.metrics.ObserveTransition(string(appointments.StatusNoShow))
		summary.Updated++
	}

	s.metrics.ObserveSweep(string(trigger), summary.Updated, time.Since(started).Seconds())
	s.logger.Info("cleanup sweep completed",
		"total_stale", summary.TotalStale, "updated", summary.Updated, "triggered_by", string(trigger))
	return summary, nil
}
