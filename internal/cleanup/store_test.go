package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppend(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store := NewStore(mock)
	apptID := uuid.New()

	mock.ExpectExec("INSERT INTO appointment_cleanup_log").
		WithArgs(pgxmock.AnyArg(), apptID, "ongoing", "no-show", "timeout", true, "cron", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry := &LogEntry{
		AppointmentID:  apptID,
		PreviousStatus: "ongoing",
		NewStatus:      "no-show",
		NoShowType:     "timeout",
		AutoFixed:      true,
		TriggeredBy:    TriggerCron,
	}
	require.NoError(t, store.Append(context.Background(), entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestStoreListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store := NewStore(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_id", "previous_status", "new_status", "no_show_type", "auto_fixed", "triggered_by", "created_at",
		}).AddRow(uuid.New(), uuid.New(), "ongoing", "no-show", "timeout", true, "manual", now))

	entries, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TriggerManual, entries[0].TriggeredBy)
	assert.True(t, entries[0].AutoFixed)
}
