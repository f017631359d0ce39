package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/lateral"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject TEXT NOT NULL,
    task TEXT NOT NULL,
    channels TEXT NOT NULL,
    sfreq REAL NOT NULL,
    tmin REAL NOT NULL,
    n_times INTEGER NOT NULL,
    event_id TEXT NOT NULL,
    n_trials INTEGER NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
    UNIQUE(subject, task)
);

CREATE TABLE IF NOT EXISTS trials (
    dataset_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    trial_index INTEGER NOT NULL,
    onset REAL NOT NULL,
    condition TEXT NOT NULL,
    signal BLOB NOT NULL,
    PRIMARY KEY (dataset_id, position),
    FOREIGN KEY (dataset_id) REFERENCES datasets(id)
);

CREATE INDEX IF NOT EXISTS idx_trials_condition ON trials(dataset_id, condition);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    dataset_id INTEGER NOT NULL,
    params TEXT NOT NULL,
    slices TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    FOREIGN KEY (dataset_id) REFERENCES datasets(id)
);

CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset_id, started_at);

CREATE TABLE IF NOT EXISTS power_rows (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    condition TEXT NOT NULL,
    target_side TEXT NOT NULL,
    distractor_side TEXT NOT NULL,
    alpha_side TEXT NOT NULL,
    cluster TEXT NOT NULL,
    power REAL NOT NULL,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveDataset stores the epochs of one subject and task. An existing dataset
// is replaced, runs included, only when replace is set.
func (s *SQLiteStore) SaveDataset(ctx context.Context, subject string, task epochs.Task, ep *epochs.Store, replace bool) (*Dataset, error) {
	channelsJSON, err := json.Marshal(ep.Channels())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal channels: %w", err)
	}
	eventIDJSON, err := json.Marshal(ep.EventID())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event ids: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM datasets WHERE subject = ? AND task = ?`, subject, string(task)).Scan(&existing)
	switch {
	case err == nil && !replace:
		return nil, fmt.Errorf("dataset %s/%s: %w", subject, task, ErrExists)
	case err == nil:
		if err := deleteDatasetTx(ctx, tx, existing); err != nil {
			return nil, err
		}
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("failed to look up dataset: %w", err)
	}

	now := time.Now().Unix()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (subject, task, channels, sfreq, tmin, n_times, event_id, n_trials, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subject, string(task), string(channelsJSON), ep.SFreq(), ep.TMin(), ep.NTimes(), string(eventIDJSON), ep.Len(), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert dataset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trials (dataset_id, position, trial_index, onset, condition, signal) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare trial insert: %w", err)
	}
	defer stmt.Close()

	for pos, tr := range ep.Trials() {
		if _, err := stmt.ExecContext(ctx, id, pos, tr.Index, tr.Onset, string(tr.Condition), encodeSignal(tr.Data)); err != nil {
			return nil, fmt.Errorf("failed to insert trial %d: %w", tr.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dataset: %w", err)
	}

	return &Dataset{
		ID:        id,
		Subject:   subject,
		Task:      task,
		Channels:  ep.Channels(),
		SFreq:     ep.SFreq(),
		TMin:      ep.TMin(),
		NTimes:    ep.NTimes(),
		EventID:   ep.EventID(),
		NTrials:   ep.Len(),
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}, nil
}

const datasetColumns = `id, subject, task, channels, sfreq, tmin, n_times, event_id, n_trials, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (*Dataset, error) {
	var d Dataset
	var task, channelsJSON, eventIDJSON string
	var createdAt, updatedAt int64

	if err := row.Scan(&d.ID, &d.Subject, &task, &channelsJSON, &d.SFreq, &d.TMin, &d.NTimes, &eventIDJSON, &d.NTrials, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.Task = epochs.Task(task)

	if err := json.Unmarshal([]byte(channelsJSON), &d.Channels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channels: %w", err)
	}
	if err := json.Unmarshal([]byte(eventIDJSON), &d.EventID); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event ids: %w", err)
	}

	d.CreatedAt = time.Unix(createdAt, 0)
	d.UpdatedAt = time.Unix(updatedAt, 0)
	return &d, nil
}

func (s *SQLiteStore) GetDataset(ctx context.Context, subject string, task epochs.Task) (*Dataset, error) {
	d, err := scanDataset(s.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE subject = ? AND task = ?`, subject, string(task)))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+datasetColumns+` FROM datasets ORDER BY subject, task`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// LoadEpochs rebuilds the stored trials of a dataset in their original order.
func (s *SQLiteStore) LoadEpochs(ctx context.Context, datasetID int64) (*epochs.Store, error) {
	d, err := scanDataset(s.db.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, datasetID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT trial_index, onset, condition, signal FROM trials WHERE dataset_id = ? ORDER BY position`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trials: %w", err)
	}
	defer rows.Close()

	trials := make([]epochs.Trial, 0, d.NTrials)
	for rows.Next() {
		var tr epochs.Trial
		var cond string
		var blob []byte
		if err := rows.Scan(&tr.Index, &tr.Onset, &cond, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		tr.Condition = epochs.Condition(cond)
		tr.Data, err = decodeSignal(blob, len(d.Channels), d.NTimes)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", tr.Index, err)
		}
		trials = append(trials, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trials: %w", err)
	}

	return epochs.New(epochs.Layout{Channels: d.Channels, SFreq: d.SFreq, TMin: d.TMin, NTimes: d.NTimes}, d.EventID, trials)
}

func (s *SQLiteStore) DeleteDataset(ctx context.Context, subject string, task epochs.Task) error {
	d, err := s.GetDataset(ctx, subject, task)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDatasetTx(ctx, tx, d.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteDatasetTx(ctx context.Context, tx *sql.Tx, id int64) error {
	// First delete dependent rows
	stmts := []string{
		`DELETE FROM power_rows WHERE run_id IN (SELECT id FROM runs WHERE dataset_id = ?)`,
		`DELETE FROM runs WHERE dataset_id = ?`,
		`DELETE FROM trials WHERE dataset_id = ?`,
		`DELETE FROM datasets WHERE id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete dataset %d: %w", id, err)
		}
	}
	return nil
}

// SaveRun stores a run and its table rows.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	slicesJSON, err := json.Marshal(run.Slices)
	if err != nil {
		return fmt.Errorf("failed to marshal slices: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, dataset_id, params, slices, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.DatasetID, string(paramsJSON), string(slicesJSON), run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for pos, r := range run.Rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO power_rows (run_id, position, condition, target_side, distractor_side, alpha_side, cluster, power)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, pos, r.Condition, string(r.TargetSide), string(r.DistractorSide), string(r.AlphaSide), string(r.Cluster), r.Power,
		)
		if err != nil {
			return fmt.Errorf("failed to insert power row %d: %w", pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runQuery = `SELECT r.id, r.dataset_id, d.subject, d.task, r.params, r.slices, r.started_at, r.finished_at
	FROM runs r JOIN datasets d ON d.id = r.dataset_id`

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var task, paramsJSON, slicesJSON string
	var startedAt, finishedAt int64

	if err := row.Scan(&run.ID, &run.DatasetID, &run.Subject, &task, &paramsJSON, &slicesJSON, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.Task = epochs.Task(task)

	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(slicesJSON), &run.Slices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slices: %w", err)
	}

	run.StartedAt = time.UnixMilli(startedAt)
	run.FinishedAt = time.UnixMilli(finishedAt)
	return &run, nil
}

func (s *SQLiteStore) loadRows(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT condition, target_side, distractor_side, alpha_side, cluster, power
		 FROM power_rows WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to get power rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r lateral.Row
		var target, distractor, alpha, cluster string
		if err := rows.Scan(&r.Condition, &target, &distractor, &alpha, &cluster, &r.Power); err != nil {
			return fmt.Errorf("failed to scan power row: %w", err)
		}
		r.TargetSide = lateral.Side(target)
		r.DistractorSide = lateral.Side(distractor)
		r.AlphaSide = lateral.Relation(alpha)
		r.Cluster = lateral.Cluster(cluster)
		run.Rows = append(run.Rows, r)
	}
	return rows.Err()
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, runQuery+` WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if err := s.loadRows(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) LatestRun(ctx context.Context, datasetID int64) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		runQuery+` WHERE r.dataset_id = ? ORDER BY r.started_at DESC, r.rowid DESC LIMIT 1`, datasetID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	if err := s.loadRows(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first, without their rows. A zero datasetID
// lists every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, datasetID int64) ([]*Run, error) {
	query := runQuery + ` ORDER BY r.started_at DESC, r.rowid DESC`
	var args []any
	if datasetID != 0 {
		query = runQuery + ` WHERE r.dataset_id = ? ORDER BY r.started_at DESC, r.rowid DESC`
		args = append(args, datasetID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
