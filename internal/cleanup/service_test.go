package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/telemed-platform/internal/appointments"
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

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func staleRow(rows *pgxmock.Rows, id uuid.UUID, startedAt time.Time) *pgxmock.Rows {
	roomToken, passCode := "room-stale", "pc"
	startWindow := startedAt.Add(-10 * time.Minute)
	endWindow := startedAt.Add(40 * time.Minute)
	return rows.AddRow(
		id, uuid.New(), uuid.New(), string(appointments.StatusOngoing),
		startedAt.Add(-10*time.Hour), "10:00", "10:30", 30,
		string(appointments.TypeVideo), 500, (*string)(nil), (*string)(nil),
		&roomToken, &passCode, &startWindow, &endWindow, &startedAt, (*time.Time)(nil),
		(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*time.Time)(nil),
		(*int)(nil), (*string)(nil),
		startedAt, startedAt,
	)
}

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc := NewService(appointments.NewStore(mock), NewStore(mock), 45*time.Minute, nil, nil)
	svc.WithNow(func() time.Time { return testNow })
	return svc, mock
}

func TestSweepNothingStale(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT").
		WithArgs(testNow.Add(-45 * time.Minute)).
		WillReturnRows(pgxmock.NewRows(apptColumns))

	summary, err := svc.Run(context.Background(), TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalStale: 0, Updated: 0}, summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepMarksStaleSessionsAsTimeouts(t *testing.T) {
	svc, mock := newTestService(t)
	id := uuid.New()
	startedAt := testNow.Add(-2 * time.Hour)

	mock.ExpectQuery("SELECT").
		WithArgs(testNow.Add(-45 * time.Minute)).
		WillReturnRows(staleRow(pgxmock.NewRows(apptColumns), id, startedAt))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(string(appointments.NoShowTimeout), pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO appointment_cleanup_log").
		WithArgs(pgxmock.AnyArg(), id, string(appointments.StatusOngoing), string(appointments.StatusNoShow),
			string(appointments.NoShowTimeout), true, string(TriggerManual), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	summary, err := svc.Run(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalStale: 1, Updated: 1}, summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepSkipsRecordsThatLostTheRace(t *testing.T) {
	svc, mock := newTestService(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT").
		WithArgs(testNow.Add(-45 * time.Minute)).
		WillReturnRows(staleRow(pgxmock.NewRows(apptColumns), id, testNow.Add(-time.Hour)))
	// The doctor ended the session between the list and the update; no audit
	// entry is written for a correction that never happened.
	mock.ExpectExec("UPDATE appointments").
		WithArgs(string(appointments.NoShowTimeout), pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	summary, err := svc.Run(context.Background(), TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalStale: 1, Updated: 0}, summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepToleratesPerRecordFailures(t *testing.T) {
	svc, mock := newTestService(t)
	first, second := uuid.New(), uuid.New()
	startedAt := testNow.Add(-time.Hour)

	rows := staleRow(pgxmock.NewRows(apptColumns), first, startedAt)
	rows = staleRow(rows, second, startedAt)

	mock.ExpectQuery("SELECT").
		WithArgs(testNow.Add(-45 * time.Minute)).
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE appointments").
		WithArgs(string(appointments.NoShowTimeout), pgxmock.AnyArg(), first).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("UPDATE appointments").
		WithArgs(string(appointments.NoShowTimeout), pgxmock.AnyArg(), second).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO appointment_cleanup_log").
		WithArgs(pgxmock.AnyArg(), second, string(appointments.StatusOngoing), string(appointments.StatusNoShow),
			string(appointments.NoShowTimeout), true, string(TriggerCron), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	summary, err := svc.Run(context.Background(), TriggerCron)
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalStale: 2, Updated: 1}, summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepFailsWhenListingFails(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT").
		WithArgs(testNow.Add(-45 * time.Minute)).
		WillReturnError(errors.New("db down"))

	_, err := svc.Run(context.Background(), TriggerCron)
	require.Error(t, err)
}
