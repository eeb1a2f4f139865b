package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/telemed-platform/internal/appointments"
	"github.com/carebridge/telemed-platform/internal/clinictime"
	"github.com/carebridge/telemed-platform/internal/observability/metrics"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

// Windows carries the session timing policy. StartGrace bounds how far from
// the scheduled instant a doctor may start, and pads the patient join window
// on both sides.
type Windows struct {
	StartGrace time.Duration
}

// Credentials are the room coordinates returned to a participant. Media
// transport itself is delegated to the external video provider the room
// token refers to.
type Credentials struct {
	RoomToken string `json:"roomToken"`
	PassCode  string `json:"passCode"`
}

// Service governs the start/join/end protocol of live video consultations.
// Start and End belong to the owning doctor, Join to the owning patient;
// every transition is a conditional store write so concurrent actors race
// safely.
type Service struct {
	store   *appointments.Store
	zone    clinictime.Zone
	windows Windows
	metrics *metrics.AppointmentMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService creates a session protocol service.
func NewService(store *appointments.Store, zone clinictime.Zone, windows Windows, m *metrics.AppointmentMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if windows.StartGrace <= 0 {
		windows.StartGrace = 10 * time.Minute
	}
	return &Service{
		store:   store,
		zone:    zone,
		windows: windows,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// WithNow overrides the clock source. Intended for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start opens the video session for a confirmed video appointment. It is
// only legal within StartGrace of the scheduled instant, and only once: the
// store's started_at guard rejects a second start even under races.
func (s *Service) Start(ctx context.Context, doctorID, appointmentID uuid.UUID) (Credentials, error) {
	a, err := s.store.Get(ctx, appointmentID)
	if err != nil {
		return Credentials{}, err
	}
	if a.DoctorID != doctorID {
		return Credentials{}, appointments.ErrForbidden
	}
	if a.Type != appointments.TypeVideo {
		return Credentials{}, appointments.ErrInvalidState
	}
	if a.Status != appointments.StatusConfirmed {
		return Credentials{}, appointments.ErrInvalidState
	}
	if a.Session != nil {
		return Credentials{}, appointments.ErrInvalidState
	}

	scheduledAt, err := s.zone.At(a.Slot.Date, a.Slot.StartTime)
	if err != nil {
		return Credentials{}, appointments.ErrInvalidState
	}

	now := s.now()
	if now.Before(scheduledAt.Add(-s.windows.StartGrace)) || now.After(scheduledAt.Add(s.windows.StartGrace)) {
		return Credentials{}, appointments.ErrOutsideWindow
	}

	duration := time.Duration(a.Slot.DurationMinutes) * time.Minute
	sess, err := appointments.NewVideoSession(a.ID, scheduledAt, duration, s.windows.StartGrace, now.UTC())
	if err != nil {
		return Credentials{}, err
	}

	ok, err := s.store.BeginSession(ctx, a.ID, sess)
	if err != nil {
		return Credentials{}, err
	}
	if !ok {
		return Credentials{}, appointments.ErrInvalidState
	}

	s.metrics.ObserveTransition(string(appointments.StatusOngoing))
	s.logger.Info("video session started",
		"appointment_id", a.ID, "doctor_id", doctorID, "room_token", sess.RoomToken)
	return Credentials{RoomToken: sess.RoomToken, PassCode: sess.PassCode}, nil
}

// Join hands the room credentials to the owning patient while the join
// window is open. Arriving early is retryable and leaves the appointment
// untouched; arriving after the window reclassifies it as a patient no-show.
func (s *Service) Join(ctx context.Context, patientID, appointmentID uuid.UUID) (Credentials, error) {
	a, err := s.store.Get(ctx, appointmentID)
	if err != nil {
		return Credentials{}, err
	}
	if a.Type != appointments.TypeVideo {
		return Credentials{}, appointments.ErrNotFound
	}
	if a.PatientID != patientID {
		return Credentials{}, appointments.ErrForbidden
	}
	if a.Status != appointments.StatusOngoing {
		return Credentials{}, appointments.ErrInvalidState
	}
	if a.Session == nil || !a.Session.Initialized() {
		return Credentials{}, appointments.ErrInvalidState
	}

	now := s.now()
	if now.Before(a.Session.StartWindow) {
		return Credentials{}, appointments.ErrTooEarly
	}
	if now.After(a.Session.EndWindow) {
		flipped, err := s.store.MarkNoShow(ctx, a.ID, appointments.NoShowPatientAbsent)
		if err != nil {
			s.logger.Error("failed to mark expired join as no-show",
				"appointment_id", a.ID, "error", err)
		} else if flipped {
			s.metrics.ObserveTransition(string(appointments.StatusNoShow))
			s.logger.Info("join window expired, appointment marked no-show",
				"appointment_id", a.ID, "patient_id", patientID)
		}
		return Credentials{}, appointments.ErrWindowExpired
	}

	return Credentials{RoomToken: a.Session.RoomToken, PassCode: a.Session.PassCode}, nil
}

// End closes an ongoing session and completes the appointment. If the
// reconciliation sweep already reclassified the appointment, the conditional
// write loses and the caller sees the state error instead of silently
// overwriting the sweep's verdict.
func (s *Service) End(ctx context.Context, doctorID, appointmentID uuid.UUID) error {
	a, err := s.store.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	if a.DoctorID != doctorID {
		return appointments.ErrForbidden
	}

	ok, err := s.store.CompleteSession(ctx, a.ID, s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return appointments.ErrInvalidState
	}

	s.metrics.ObserveTransition(string(appointments.StatusCompleted))
	s.logger.Info("video session ended", "appointment_id", a.ID, "doctor_id", doctorID)
	return nil
}
