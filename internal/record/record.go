// internal/record/record.go

// Package record stores poll cycles in a SQLite file, one row per cycle and
// one per answering device. Samples and CycleCount read a run back for
// offline tools and tests.
package record

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tamzrod/servoscan/internal/poller"
	"github.com/tamzrod/servoscan/internal/servo"
)

// DB stores poll cycles in SQLite.
type DB struct {
	*sql.DB
}

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started TIMESTAMP NOT NULL,
		targets INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cycles (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		at TIMESTAMP NOT NULL,
		elapsed_us INTEGER NOT NULL,
		rate DOUBLE,
		present INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY(run_id) REFERENCES runs(run_id)
	);
	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		bus INTEGER NOT NULL,
		servo_id INTEGER NOT NULL,
		mode DOUBLE,
		position DOUBLE,
		velocity DOUBLE,
		torque DOUBLE,
		voltage DOUBLE,
		temperature DOUBLE,
		fault DOUBLE,
		PRIMARY KEY (run_id, seq, bus, servo_id)
	);
`

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}

	// one writer; SQLite serializes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("record: schema: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) StartRun(runID uuid.UUID, started time.Time, targets int) error {
	_, err := db.Exec(
		"INSERT INTO runs (run_id, started, targets) VALUES (?, ?, ?)",
		runID.String(), started.UTC(), targets,
	)
	if err != nil {
		return fmt.Errorf("record: start run: %w", err)
	}
	return nil
}

// RecordReport stores one cycle and its samples in a single transaction.
func (db *DB) RecordReport(rep poller.Report) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("record: begin: %w", err)
	}
	defer tx.Rollback()

	var errText sql.NullString
	if rep.Err != nil {
		errText = sql.NullString{String: rep.Err.Error(), Valid: true}
	}

	if _, err := tx.Exec(
		"INSERT INTO cycles (run_id, seq, at, elapsed_us, rate, present, error) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rep.RunID.String(), rep.Seq, rep.At.UTC(), rep.Elapsed.Microseconds(), rep.Rate, len(rep.Results), errText,
	); err != nil {
		return fmt.Errorf("record: cycle %d: %w", rep.Seq, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO samples
		(run_id, seq, bus, servo_id, mode, position, velocity, torque, voltage, temperature, fault)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("record: prepare: %w", err)
	}
	defer stmt.Close()

	for _, res := range rep.Results {
		if _, err := stmt.Exec(
			rep.RunID.String(), rep.Seq, int(res.Bus), int(res.ID),
			nullable(res, servo.RegMode),
			nullable(res, servo.RegPosition),
			nullable(res, servo.RegVelocity),
			nullable(res, servo.RegTorque),
			nullable(res, servo.RegVoltage),
			nullable(res, servo.RegTemperature),
			nullable(res, servo.RegFault),
		); err != nil {
			return fmt.Errorf("record: sample id=%d: %w", res.ID, err)
		}
	}

	return tx.Commit()
}

// Sample is one stored servo reply. Missing or NaN values are nil.
type Sample struct {
	Seq      uint64
	Bus      servo.Bus
	ID       servo.ID
	Mode     *float64
	Position *float64
	Velocity *float64
	Torque   *float64
}

// Samples returns the most recent samples of a run, newest cycle first.
func (db *DB) Samples(runID uuid.UUID, limit int) ([]Sample, error) {
	rows, err := db.Query(`SELECT seq, bus, servo_id, mode, position, velocity, torque
		FROM samples WHERE run_id = ? ORDER BY seq DESC, bus, servo_id LIMIT ?`,
		runID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			s                  Sample
			bus, id            int
			mode, pos, vel, tq sql.NullFloat64
		)
		if err := rows.Scan(&s.Seq, &bus, &id, &mode, &pos, &vel, &tq); err != nil {
			return nil, err
		}
		s.Bus, s.ID = servo.Bus(bus), servo.ID(id)
		s.Mode, s.Position, s.Velocity, s.Torque = ptr(mode), ptr(pos), ptr(vel), ptr(tq)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// CycleCount returns how many cycles were stored for a run.
func (db *DB) CycleCount(runID uuid.UUID) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM cycles WHERE run_id = ?", runID.String()).Scan(&n)
	return n, err
}

func nullable(res servo.Result, reg servo.Register) sql.NullFloat64 {
	v, ok := res.Value(reg)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
