package appointments

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the single source of truth for an appointment's lifecycle position.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// Type is the consultation modality. Only video appointments carry a session.
type Type string

const (
	TypeVideo Type = "video"
	TypeAudio Type = "audio"
	TypeChat  Type = "chat"
)

// NoShowType records which party failed to appear, set only alongside
// StatusNoShow.
type NoShowType string

const (
	NoShowDoctorLate    NoShowType = "doctor-late"
	NoShowPatientAbsent NoShowType = "patient-absent"
	NoShowTimeout       NoShowType = "timeout"
)

// Slot is one bookable consultation window. Date is the local-midnight
// instant of the clinic calendar day; StartTime and EndTime are local HH:mm
// clock times within that day.
type Slot struct {
	Date            time.Time `json:"date"`
	StartTime       string    `json:"startTime"`
	EndTime         string    `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
}

// VideoSession is the session sub-record owned by a video appointment. It is
// created exactly once, when the doctor starts the session, and never
// reconstructed.
type VideoSession struct {
	RoomToken   string     `json:"roomToken"`
	PassCode    string     `json:"passCode"`
	StartWindow time.Time  `json:"startWindow"`
	EndWindow   time.Time  `json:"endWindow"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
}

// NewVideoSession builds a session for an appointment scheduled at
// scheduledAt. The join window opens grace before the scheduled instant and
// closes grace after the scheduled consult would have run its full duration,
// so a patient arriving mid-consult can still join.
func NewVideoSession(appointmentID uuid.UUID, scheduledAt time.Time, duration, grace time.Duration, startedAt time.Time) (VideoSession, error) {
	if duration <= 0 {
		return VideoSession{}, fmt.Errorf("appointments: session duration must be positive, got %s", duration)
	}
	if grace <= 0 {
		return VideoSession{}, fmt.Errorf("appointments: session grace must be positive, got %s", grace)
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return VideoSession{}, fmt.Errorf("appointments: room token entropy: %w", err)
	}
	pass := make([]byte, 6)
	if _, err := rand.Read(pass); err != nil {
		return VideoSession{}, fmt.Errorf("appointments: passcode entropy: %w", err)
	}

	return VideoSession{
		RoomToken:   fmt.Sprintf("room-%s-%s", appointmentID, hex.EncodeToString(suffix)),
		PassCode:    base64.RawURLEncoding.EncodeToString(pass),
		StartWindow: scheduledAt.Add(-grace),
		EndWindow:   scheduledAt.Add(duration + grace),
		StartedAt:   startedAt,
	}, nil
}

// Initialized reports whether the session's join windows were populated.
func (s VideoSession) Initialized() bool {
	return !s.StartWindow.IsZero() && !s.EndWindow.IsZero()
}

// PostConsult carries the doctor's write-once consultation summary.
type PostConsult struct {
	Notes        string    `json:"notes,omitempty"`
	Diagnosis    string    `json:"diagnosis,omitempty"`
	Prescription string    `json:"prescription,omitempty"`
	FollowUp     string    `json:"followUpInstructions,omitempty"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Appointment is one scheduled consultation between a patient and a doctor.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patientId"`
	DoctorID  uuid.UUID `json:"doctorId"`
	Status    Status    `json:"status"`
	Slot      Slot      `json:"slot"`
	Type      Type      `json:"type"`
	Fee       int       `json:"fee"`
	Notes     string    `json:"notes,omitempty"`

	NoShowType NoShowType    `json:"noShowType,omitempty"`
	Session    *VideoSession `json:"videoSession,omitempty"`

	PostConsult     *PostConsult `json:"postConsult,omitempty"`
	PatientRating   int          `json:"patientRating,omitempty"`
	PatientFeedback string       `json:"patientFeedback,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// transitions enumerates the legal status graph. Terminal states have no
// outgoing edges.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusOngoing, StatusCancelled},
	StatusOngoing:   {StatusCompleted, StatusNoShow},
}

// CanTransition reports whether the status graph permits from → to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidType reports whether t is a known consultation type.
func ValidType(t Type) bool {
	switch t {
	case TypeVideo, TypeAudio, TypeChat:
		return true
	}
	return false
}
