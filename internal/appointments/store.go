package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments. Every lifecycle mutation is a conditional
// update guarded by the current status, so concurrent transitions race safely
// and exactly one wins; the loser observes zero affected rows.
type Store struct {
	db DB
}

// NewStore creates an appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const appointmentColumns = `
	id, patient_id, doctor_id, status,
	slot_date, start_time, end_time, duration_minutes,
	type, fee, notes, no_show_type,
	room_token, pass_code, start_window, end_window, started_at, ended_at,
	consult_notes, consult_diagnosis, consult_prescription, consult_follow_up, consult_submitted_at,
	patient_rating, patient_feedback,
	created_at, updated_at`

// Insert persists a freshly booked appointment.
func (s *Store) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, status, slot_date, start_time, end_time, duration_minutes, type, fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.PatientID, a.DoctorID, string(a.Status),
		a.Slot.Date, a.Slot.StartTime, a.Slot.EndTime, a.Slot.DurationMinutes,
		string(a.Type), a.Fee, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// Get loads one appointment by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

// HasSlotConflict reports whether the doctor already holds a non-cancelled
// appointment on the given local day with the identical start time. Only
// exact start-time collisions are detected; overlapping ranges with distinct
// start times are not.
func (s *Store) HasSlotConflict(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time, startTime string) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND slot_date >= $2 AND slot_date < $3
			  AND start_time = $4
			  AND status <> 'cancelled'
		)`, doctorID, dayStart, dayEnd, startTime)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("appointments: slot conflict check: %w", err)
	}
	return exists, nil
}

// DeleteScheduledForPatient removes an appointment only while it is still
// scheduled and owned by the patient. Returns false when nothing matched.
func (s *Store) DeleteScheduledForPatient(ctx context.Context, id, patientID uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1 AND patient_id = $2 AND status = 'scheduled'`, id, patientID)
	if err != nil {
		return false, fmt.Errorf("appointments: delete scheduled: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Transition flips status from → to, guarded by the current status. Returns
// false when the precondition no longer holds (already transitioned, or a
// concurrent transition won).
func (s *Store) Transition(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("appointments: transition %s->%s: %w", from, to, err)
	}
	return tag.RowsAffected() == 1, nil
}

// CancelActive cancels a scheduled or confirmed appointment, storing an
// optional reason in notes.
func (s *Store) CancelActive(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    notes = CASE WHEN $1 <> '' THEN $1 ELSE notes END,
		    updated_at = $2
		WHERE id = $3 AND status IN ('scheduled', 'confirmed')`,
		reason, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("appointments: cancel: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// BeginSession attaches a freshly built video session and flips
// confirmed → ongoing in one conditional write. The started_at guard makes
// session start write-once even if two starts race.
func (s *Store) BeginSession(ctx context.Context, id uuid.UUID, sess VideoSession) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'ongoing',
		    room_token = $1, pass_code = $2,
		    start_window = $3, end_window = $4, started_at = $5,
		    updated_at = $6
		WHERE id = $7 AND status = 'confirmed' AND started_at IS NULL`,
		sess.RoomToken, sess.PassCode, sess.StartWindow, sess.EndWindow, sess.StartedAt,
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("appointments: begin session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CompleteSession flips ongoing → completed and stamps the session end.
func (s *Store) CompleteSession(ctx context.Context, id uuid.UUID, endedAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'completed', ended_at = $1, updated_at = $2
		WHERE id = $3 AND status = 'ongoing'`,
		endedAt, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("appointments: complete session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkNoShow flips ongoing → no-show. A no-show type already recorded by an
// earlier path is preserved; reason only fills the gap.
func (s *Store) MarkNoShow(ctx context.Context, id uuid.UUID, reason NoShowType) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET status = 'no-show',
		    no_show_type = COALESCE(no_show_type, $1),
		    updated_at = $2
		WHERE id = $3 AND status = 'ongoing'`,
		string(reason), time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("appointments: mark no-show: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SubmitPostConsult records the doctor's consultation summary exactly once,
// only on a completed appointment.
func (s *Store) SubmitPostConsult(ctx context.Context, id uuid.UUID, pc PostConsult) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET consult_notes = $1, consult_diagnosis = $2, consult_prescription = $3,
		    consult_follow_up = $4, consult_submitted_at = $5, updated_at = $6
		WHERE id = $7 AND status = 'completed' AND consult_submitted_at IS NULL`,
		pc.Notes, pc.Diagnosis, pc.Prescription, pc.FollowUp, pc.SubmittedAt,
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("appointments: submit post-consult: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SubmitRating records the patient's rating exactly once, only on a
// completed appointment.
func (s *Store) SubmitRating(ctx context.Context, id uuid.UUID, rating int, feedback string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET patient_rating = $1, patient_feedback = $2, updated_at = $3
		WHERE id = $4 AND status = 'completed' AND patient_rating IS NULL`,
		rating, feedback, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("appointments: submit rating: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListStaleOngoing returns ongoing appointments whose session started before
// the cutoff, oldest first.
func (s *Store) ListStaleOngoing(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'ongoing' AND started_at IS NOT NULL AND started_at < $1
		ORDER BY started_at ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("appointments: list stale ongoing: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListForDoctorDay returns a doctor's active appointments within a local day
// window, soonest first.
func (s *Store) ListForDoctorDay(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND slot_date >= $2 AND slot_date < $3
		  AND status IN ('scheduled', 'confirmed', 'ongoing')
		ORDER BY slot_date ASC, start_time ASC`, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("appointments: list doctor day: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListForPatient returns a patient's appointments, soonest slot first.
func (s *Store) ListForPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY slot_date ASC, start_time ASC
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list for patient: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListConfirmedForDoctor returns the doctor's confirmed appointments, the
// waiting-room view, soonest first.
func (s *Store) ListConfirmedForDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND status = 'confirmed'
		ORDER BY slot_date ASC, start_time ASC
		LIMIT $2`, doctorID, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list confirmed: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a          Appointment
		status     string
		typ        string
		notes      *string
		noShowType *string

		roomToken   *string
		passCode    *string
		startWindow *time.Time
		endWindow   *time.Time
		startedAt   *time.Time
		endedAt     *time.Time

		consultNotes        *string
		consultDiagnosis    *string
		consultPrescription *string
		consultFollowUp     *string
		consultSubmittedAt  *time.Time

		rating   *int
		feedback *string
	)

	err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &status,
		&a.Slot.Date, &a.Slot.StartTime, &a.Slot.EndTime, &a.Slot.DurationMinutes,
		&typ, &a.Fee, &notes, &noShowType,
		&roomToken, &passCode, &startWindow, &endWindow, &startedAt, &endedAt,
		&consultNotes, &consultDiagnosis, &consultPrescription, &consultFollowUp, &consultSubmittedAt,
		&rating, &feedback,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = Status(status)
	a.Type = Type(typ)
	if notes != nil {
		a.Notes = *notes
	}
	if noShowType != nil {
		a.NoShowType = NoShowType(*noShowType)
	}

	if startedAt != nil {
		sess := VideoSession{StartedAt: *startedAt, EndedAt: endedAt}
		if roomToken != nil {
			sess.RoomToken = *roomToken
		}
		if passCode != nil {
			sess.PassCode = *passCode
		}
		if startWindow != nil {
			sess.StartWindow = *startWindow
		}
		if endWindow != nil {
			sess.EndWindow = *endWindow
		}
		a.Session = &sess
	}

	if consultSubmittedAt != nil {
		pc := PostConsult{SubmittedAt: *consultSubmittedAt}
		if consultNotes != nil {
			pc.Notes = *consultNotes
		}
		if consultDiagnosis != nil {
			pc.Diagnosis = *consultDiagnosis
		}
		if consultPrescription != nil {
			pc.Prescription = *consultPrescription
		}
		if consultFollowUp != nil {
			pc.FollowUp = *consultFollowUp
		}
		a.PostConsult = &pc
	}

	if rating != nil {
		a.PatientRating = *rating
	}
	if feedback != nil {
		a.PatientFeedback = *feedback
	}
	return &a, nil
}
