package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/telemed-platform/internal/clinictime"
	"github.com/carebridge/telemed-platform/internal/observability/metrics"
	"github.com/carebridge/telemed-platform/pkg/logging"
)

// DoctorDirectory answers whether a referenced user is an active, verified
// doctor. User records are owned by the identity collaborator; appointments
// only hold references.
type DoctorDirectory interface {
	IsBookable(ctx context.Context, doctorID uuid.UUID) (bool, error)
}

// Settings carries the booking defaults, lifted out of scattered literals.
type Settings struct {
	DefaultDurationMinutes int
	DefaultFee             int
}

// Service is the booking engine plus the doctor-owned confirm/cancel actions
// and the write-once post-consult operations.
type Service struct {
	store    *Store
	doctors  DoctorDirectory
	zone     clinictime.Zone
	settings Settings
	metrics  *metrics.AppointmentMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewService creates the appointment service.
func NewService(store *Store, doctors DoctorDirectory, zone clinictime.Zone, settings Settings, m *metrics.AppointmentMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if settings.DefaultDurationMinutes <= 0 {
		settings.DefaultDurationMinutes = 30
	}
	return &Service{
		store:    store,
		doctors:  doctors,
		zone:     zone,
		settings: settings,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock source. Intended for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// BookInput is a booking request for one (doctor, local day, start time) slot.
type BookInput struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      string
	StartTime string
	EndTime   string
	Type      Type
}

// Book validates the requested slot, checks doctor eligibility and slot
// collisions, and creates the appointment in the scheduled state.
func (s *Service) Book(ctx context.Context, in BookInput) (*Appointment, error) {
	if in.DoctorID == uuid.Nil {
		return nil, invalidField("doctorId", "required")
	}
	if !s.zone.ValidDate(in.Date) {
		return nil, invalidField("date", "must be a valid YYYY-MM-DD date")
	}
	if !clinictime.ValidClock(in.StartTime) {
		return nil, invalidField("startTime", "must be HH:mm")
	}
	if in.EndTime != "" && !clinictime.ValidClock(in.EndTime) {
		return nil, invalidField("endTime", "must be HH:mm")
	}
	if in.Type == "" {
		in.Type = TypeVideo
	}
	if !ValidType(in.Type) {
		return nil, invalidField("type", "must be video, audio or chat")
	}

	dayStart, dayEnd, err := s.zone.DayBounds(in.Date)
	if err != nil {
		return nil, invalidField("date", "must be a valid YYYY-MM-DD date")
	}

	startAt, err := s.zone.At(dayStart, in.StartTime)
	if err != nil {
		return nil, invalidField("startTime", "must be HH:mm")
	}

	duration := s.settings.DefaultDurationMinutes
	endTime := in.EndTime
	if endTime == "" {
		endTime = localClockAfter(in.StartTime, duration)
	} else {
		endAt, err := s.zone.At(dayStart, endTime)
		if err != nil {
			return nil, invalidField("endTime", "must be HH:mm")
		}
		if !endAt.After(startAt) {
			return nil, invalidField("endTime", "must be after startTime")
		}
		duration = int(endAt.Sub(startAt) / time.Minute)
	}

	ok, err := s.doctors.IsBookable(ctx, in.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("appointments: doctor lookup: %w", err)
	}
	if !ok {
		s.metrics.ObserveBooking("not_eligible")
		return nil, ErrDoctorNotBookable
	}

	conflict, err := s.store.HasSlotConflict(ctx, in.DoctorID, dayStart, dayEnd, in.StartTime)
	if err != nil {
		return nil, err
	}
	if conflict {
		s.metrics.ObserveBooking("conflict")
		return nil, ErrSlotConflict
	}

	a := &Appointment{
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		Status:    StatusScheduled,
		Slot: Slot{
			Date:            dayStart,
			StartTime:       in.StartTime,
			EndTime:         endTime,
			DurationMinutes: duration,
		},
		Type: in.Type,
		Fee:  s.settings.DefaultFee,
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, err
	}

	s.metrics.ObserveBooking("success")
	s.logger.Info("appointment booked",
		"id", a.ID, "doctor_id", a.DoctorID, "date", in.Date, "start_time", in.StartTime, "type", string(a.Type))
	return a, nil
}

// Withdraw permanently removes an appointment, only while it is still
// scheduled and owned by the requesting patient. A missing appointment and
// one the patient may not remove produce the same error on purpose.
func (s *Service) Withdraw(ctx context.Context, patientID, appointmentID uuid.UUID) error {
	ok, err := s.store.DeleteScheduledForPatient(ctx, appointmentID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.logger.Info("appointment withdrawn", "id", appointmentID, "patient_id", patientID)
	return nil
}

// Confirm moves a scheduled appointment to confirmed. Doctor-owner only.
func (s *Service) Confirm(ctx context.Context, doctorID, appointmentID uuid.UUID) (*Appointment, error) {
	a, err := s.ownedByDoctor(ctx, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.Transition(ctx, a.ID, StatusScheduled, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	s.metrics.ObserveTransition(string(StatusConfirmed))
	s.logger.Info("appointment confirmed", "id", a.ID, "doctor_id", doctorID)
	return s.store.Get(ctx, a.ID)
}

// Cancel cancels a scheduled or confirmed appointment, recording an optional
// reason. Doctor-owner only.
func (s *Service) Cancel(ctx context.Context, doctorID, appointmentID uuid.UUID, reason string) (*Appointment, error) {
	a, err := s.ownedByDoctor(ctx, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.CancelActive(ctx, a.ID, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	s.metrics.ObserveTransition(string(StatusCancelled))
	s.logger.Info("appointment cancelled", "id", a.ID, "doctor_id", doctorID)
	return s.store.Get(ctx, a.ID)
}

// SubmitConsultNotes records the doctor's write-once consultation summary on
// a completed appointment.
func (s *Service) SubmitConsultNotes(ctx context.Context, doctorID, appointmentID uuid.UUID, pc PostConsult) (*Appointment, error) {
	a, err := s.ownedByDoctor(ctx, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}
	pc.SubmittedAt = s.now().UTC()
	ok, err := s.store.SubmitPostConsult(ctx, a.ID, pc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	return s.store.Get(ctx, a.ID)
}

// SubmitRating records the patient's write-once 1-5 rating on a completed
// appointment.
func (s *Service) SubmitRating(ctx context.Context, patientID, appointmentID uuid.UUID, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return invalidField("rating", "must be between 1 and 5")
	}
	a, err := s.store.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	if a.PatientID != patientID {
		return ErrForbidden
	}
	ok, err := s.store.SubmitRating(ctx, a.ID, rating, feedback)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}
	return nil
}

// DoctorSchedule lists the doctor's active appointments for one local day,
// defaulting to today.
func (s *Service) DoctorSchedule(ctx context.Context, doctorID uuid.UUID, date string) ([]Appointment, error) {
	var dayStart, dayEnd time.Time
	if date == "" {
		dayStart, dayEnd = s.zone.TodayBounds(s.now())
	} else {
		var err error
		dayStart, dayEnd, err = s.zone.DayBounds(date)
		if err != nil {
			return nil, invalidField("date", "must be a valid YYYY-MM-DD date")
		}
	}
	return s.store.ListForDoctorDay(ctx, doctorID, dayStart, dayEnd)
}

// PatientAppointments lists the patient's appointments.
func (s *Service) PatientAppointments(ctx context.Context, patientID uuid.UUID, limit int) ([]Appointment, error) {
	return s.store.ListForPatient(ctx, patientID, limit)
}

// WaitingPatients lists the doctor's confirmed appointments.
func (s *Service) WaitingPatients(ctx context.Context, doctorID uuid.UUID, limit int) ([]Appointment, error) {
	return s.store.ListConfirmedForDoctor(ctx, doctorID, limit)
}

// ownedByDoctor loads the appointment and verifies the caller is its doctor.
// Ownership failure is distinct from absence so the owning doctor gets a
// precise error, while anyone else still cannot distinguish the two.
func (s *Service) ownedByDoctor(ctx context.Context, doctorID, appointmentID uuid.UUID) (*Appointment, error) {
	a, err := s.store.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != doctorID {
		return nil, ErrForbidden
	}
	return a, nil
}

// localClockAfter adds minutes to an HH:mm clock string, wrapping at
// midnight. Callers validate the input format first.
func localClockAfter(clock string, minutes int) string {
	var hh, mm int
	fmt.Sscanf(clock, "%02d:%02d", &hh, &mm)
	total := (hh*60 + mm + minutes) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
