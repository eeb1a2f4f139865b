package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/telemed-platform/internal/appointments"
	"github.com/carebridge/telemed-platform/internal/clinictime"
)

var apptColumns = []string{
	"id", "patient_id", "doctor_id", "status",
	"slot_date", "start_time", "end_time", "duration_minutes",
	"type", "fee", "notes", "no_show_type",
	"room_token", "pass_code", "start_window", "end_window", "started_at", "ended_at",
	"consult_notes", "consult_diagnosis", "consult_prescription", "consult_follow_up", "consult_submitted_at",
	"patient_rating", "patient_feedback",
	"created_at", "updated_at",
}

// Clinic local midnight of 2025-06-01 at UTC+5:30, so a 10:00 slot is
// scheduled for 2025-06-01T04:30Z.
var (
	testDayStart    = time.Date(2025, 5, 31, 18, 30, 0, 0, time.UTC)
	testScheduledAt = time.Date(2025, 6, 1, 4, 30, 0, 0, time.UTC)
)

func apptRow(a *appointments.Appointment) *pgxmock.Rows {
	var (
		roomToken, passCode               *string
		startWindow, endWindow, startedAt *time.Time
		endedAt                           *time.Time
	)
	if a.Session != nil {
		roomToken = &a.Session.RoomToken
		passCode = &a.Session.PassCode
		startWindow = &a.Session.StartWindow
		endWindow = &a.Session.EndWindow
		startedAt = &a.Session.StartedAt
		endedAt = a.Session.EndedAt
	}
	return pgxmock.NewRows(apptColumns).AddRow(
		a.ID, a.PatientID, a.DoctorID, string(a.Status),
		a.Slot.Date, a.Slot.StartTime, a.Slot.EndTime, a.Slot.DurationMinutes,
		string(a.Type), a.Fee, (*string)(nil), (*string)(nil),
		roomToken, passCode, startWindow, endWindow, startedAt, endedAt,
		(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*time.Time)(nil),
		(*int)(nil), (*string)(nil),
		a.CreatedAt, a.UpdatedAt,
	)
}

func confirmedVideoFixture() *appointments.Appointment {
	return &appointments.Appointment{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Status:    appointments.StatusConfirmed,
		Slot: appointments.Slot{
			Date:            testDayStart,
			StartTime:       "10:00",
			EndTime:         "10:30",
			DurationMinutes: 30,
		},
		Type:      appointments.TypeVideo,
		Fee:       500,
		CreatedAt: testDayStart,
		UpdatedAt: testDayStart,
	}
}

func ongoingFixture() *appointments.Appointment {
	a := confirmedVideoFixture()
	a.Status = appointments.StatusOngoing
	a.Session = &appointments.VideoSession{
		RoomToken:   "room-" + a.ID.String() + "-ab12",
		PassCode:    "s3cr3t",
		StartWindow: testScheduledAt.Add(-10 * time.Minute),
		EndWindow:   testScheduledAt.Add(40 * time.Minute),
		StartedAt:   testScheduledAt,
	}
	return a
}

func newTestService(t *testing.T, now time.Time) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc := NewService(appointments.NewStore(mock), clinictime.NewZone(330), Windows{
		StartGrace: 10 * time.Minute,
	}, nil, nil)
	svc.WithNow(func() time.Time { return now })
	return svc, mock
}

func TestStartWithinWindow(t *testing.T) {
	a := confirmedVideoFixture()
	svc, mock := newTestService(t, testScheduledAt)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(),
			testScheduledAt.Add(-10*time.Minute), testScheduledAt.Add(40*time.Minute),
			pgxmock.AnyArg(), pgxmock.AnyArg(), a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	creds, err := svc.Start(context.Background(), a.DoctorID, a.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, creds.RoomToken)
	assert.NotEmpty(t, creds.PassCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartWindowLimits(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"exactly on schedule", testScheduledAt, true},
		{"ten minutes early", testScheduledAt.Add(-10 * time.Minute), true},
		{"ten minutes late", testScheduledAt.Add(10 * time.Minute), true},
		{"eleven minutes early", testScheduledAt.Add(-11 * time.Minute), false},
		{"eleven minutes late", testScheduledAt.Add(11 * time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := confirmedVideoFixture()
			svc, mock := newTestService(t, tc.now)

			mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))
			if tc.ok {
				mock.ExpectExec("UPDATE appointments").
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			}

			_, err := svc.Start(context.Background(), a.DoctorID, a.ID)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, appointments.ErrOutsideWindow)
			}
		})
	}
}

func TestStartWrongDoctor(t *testing.T) {
	a := confirmedVideoFixture()
	svc, mock := newTestService(t, testScheduledAt)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))

	_, err := svc.Start(context.Background(), uuid.New(), a.ID)
	assert.ErrorIs(t, err, appointments.ErrForbidden)
}

func TestStartRejectsNonVideo(t *testing.T) {
	a := confirmedVideoFixture()
	a.Type = appointments.TypeChat
	svc, mock := newTestService(t, testScheduledAt)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))

	_, err := svc.Start(context.Background(), a.DoctorID, a.ID)
	assert.ErrorIs(t, err, appointments.ErrInvalidState)
}

func TestStartRejectsUnconfirmed(t *testing.T) {
	a := confirmedVideoFixture()
	a.Status = appointments.StatusScheduled
	svc, mock := newTestService(t, testScheduledAt)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))

	_, err := svc.Start(context.Background(), a.DoctorID, a.ID)
	assert.ErrorIs(t, err, appointments.ErrInvalidState)
}

func TestStartLostRace(t *testing.T) {
	a := confirmedVideoFixture()
	svc, mock := newTestService(t, testScheduledAt)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := svc.Start(context.Background(), a.DoctorID, a.ID)
	assert.ErrorIs(t, err, appointments.ErrInvalidState)
}

func TestJoinReturnsCredentials(t *testing.T) {
	a := ongoingFixture()
	svc, mock := newTestService(t, testScheduledAt.Add(5*time.Minute))

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))

	creds, err := svc.Join(context.Background(), a.PatientID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Session.RoomToken, creds.RoomToken)
	assert.Equal(t, a.Session.PassCode, creds.PassCode)
}

func TestJoinTooEarlyLeavesAppointmentUntouched(t *testing.T) {
	a := ongoingFixture()
	svc, mock := newTestService(t, testScheduledAt.Add(-15*time.Minute))

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))

	_, err := svc.Join(context.Background(), a.PatientID, a.ID)
	assert.ErrorIs(t, err, appointments.ErrTooEarly)
	// No UPDATE expected; arriving early is retryable.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinExpiredMarksPatientNoShow(t *testing.T) {
	a := ongoingFixture()
	svc, mock := newTestService(t, testScheduledAt.Add(time.Hour))

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(string(appointments.NoShowPatientAbsent), pgxmock.AnyArg(), a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	_, err := svc.Join(context.Background(), a.PatientID, a.ID)
	assert.ErrorIs(t, err, appointments.ErrWindowExpired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinWrongPatient(t *testing.T) {
	a := ongoingFixture()
	svc, mock := newTestService(t, testScheduledAt)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))

	_, err := svc.Join(context.Background(), uuid.New(), a.ID)
	assert.ErrorIs(t, err, appointments.ErrForbidden)
}

func TestJoinNonVideoLooksAbsent(t *testing.T) {
	a := ongoingFixture()
	a.Type = appointments.TypeAudio
	svc, mock := newTestService(t, testScheduledAt)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))

	_, err := svc.Join(context.Background(), a.PatientID, a.ID)
	assert.ErrorIs(t, err, appointments.ErrNotFound)
}

func TestJoinBeforeSessionStarted(t *testing.T) {
	a := confirmedVideoFixture()
	svc, mock := newTestService(t, testScheduledAt)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))

	_, err := svc.Join(context.Background(), a.PatientID, a.ID)
	assert.ErrorIs(t, err, appointments.ErrInvalidState)
}

func TestEndCompletesSession(t *testing.T) {
	a := ongoingFixture()
	now := testScheduledAt.Add(25 * time.Minute)
	svc, mock := newTestService(t, now)

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(now.UTC(), pgxmock.AnyArg(), a.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, svc.End(context.Background(), a.DoctorID, a.ID))
}

func TestEndAfterSweepReclassified(t *testing.T) {
	a := ongoingFixture()
	svc, mock := newTestService(t, testScheduledAt.Add(time.Hour))

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(apptRow(a))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := svc.End(context.Background(), a.DoctorID, a.ID)
	assert.ErrorIs(t, err, appointments.ErrInvalidState)
}
