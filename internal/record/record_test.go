// internal/record/record_test.go
package record

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/servoscan/internal/poller"
	"github.com/tamzrod/servoscan/internal/servo"
)

func f(v float64) *float64 { return &v }

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordReport(t *testing.T) {
	db := openTemp(t)
	run := uuid.New()
	require.NoError(t, db.StartRun(run, time.Now(), 2))

	rep := poller.Report{
		RunID:   run,
		Seq:     1,
		At:      time.Now(),
		Elapsed: 20 * time.Millisecond,
		Rate:    50,
		Results: []servo.Result{
			{ID: 11, Bus: 1, OK: true, Values: map[servo.Register]float64{
				servo.RegMode:     10,
				servo.RegPosition: 0.25,
				servo.RegVelocity: math.NaN(),
			}},
		},
	}
	require.NoError(t, db.RecordReport(rep))

	rep.Seq = 2
	rep.Results[0].Values[servo.RegPosition] = 0.5
	require.NoError(t, db.RecordReport(rep))

	got, err := db.Samples(run, 10)
	require.NoError(t, err)

	want := []Sample{
		{Seq: 2, Bus: 1, ID: 11, Mode: f(10), Position: f(0.5)},
		{Seq: 1, Bus: 1, ID: 11, Mode: f(10), Position: f(0.25)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Samples() mismatch (-want +got):\n%s", diff)
	}

	n, err := db.CycleCount(run)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestRecordFailedCycle(t *testing.T) {
	db := openTemp(t)
	run := uuid.New()
	require.NoError(t, db.StartRun(run, time.Now(), 1))

	require.NoError(t, db.RecordReport(poller.Report{RunID: run, Seq: 1, At: time.Now(), Err: errors.New("bus down")}))

	var msg string
	require.NoError(t, db.QueryRow("SELECT error FROM cycles WHERE run_id = ?", run.String()).Scan(&msg))
	require.Equal(t, "bus down", msg)

	got, err := db.Samples(run, 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDuplicateCycleRejected(t *testing.T) {
	db := openTemp(t)
	run := uuid.New()
	require.NoError(t, db.StartRun(run, time.Now(), 1))

	rep := poller.Report{RunID: run, Seq: 1, At: time.Now()}
	require.NoError(t, db.RecordReport(rep))
	require.Error(t, db.RecordReport(rep))
}
