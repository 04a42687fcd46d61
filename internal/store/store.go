package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is a persisted record of one classification pipeline run.
type Run struct {
	RunID      string          `json:"run_id"`
	RasterPath string          `json:"raster_path"`
	Rows       int             `json:"rows"`
	Cols       int             `json:"cols"`
	Bands      int             `json:"bands"`
	Classifier string          `json:"classifier"`
	Accuracy   float64         `json:"accuracy"`
	LabelPath  string          `json:"label_path"`
	ReportPath string          `json:"report_path"`
	ParamsJSON json.RawMessage `json:"params_json,omitempty"`
	CreatedAt  int64           `json:"created_at"`
}

// Store provides persistence for run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying connection for migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists a run record. If RunID is empty, a UUID is generated.
func (s *Store) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO runs (
				run_id, raster_path, rows, cols, bands,
				classifier, accuracy, label_path, report_path,
				params_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.RasterPath, run.Rows, run.Cols, run.Bands,
			run.Classifier, run.Accuracy, run.LabelPath, run.ReportPath,
			paramsStr, run.CreatedAt,
		)
		return err
	})
}

// Get returns a single run by ID.
func (s *Store) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, raster_path, rows, cols, bands,
		       classifier, accuracy, label_path, report_path,
		       params_json, created_at
		FROM runs
		WHERE run_id = ?`, runID)

	var r Run
	var paramsStr sql.NullString
	err := row.Scan(
		&r.RunID, &r.RasterPath, &r.Rows, &r.Cols, &r.Bands,
		&r.Classifier, &r.Accuracy, &r.LabelPath, &r.ReportPath,
		&paramsStr, &r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if paramsStr.Valid {
		r.ParamsJSON = json.RawMessage(paramsStr.String)
	}
	return &r, nil
}

// ListRecent returns the most recent runs, newest first.
func (s *Store) ListRecent(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT run_id, raster_path, rows, cols, bands,
		       classifier, accuracy, label_path, report_path,
		       params_json, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var r Run
		var paramsStr sql.NullString
		if err := rows.Scan(
			&r.RunID, &r.RasterPath, &r.Rows, &r.Cols, &r.Bands,
			&r.Classifier, &r.Accuracy, &r.LabelPath, &r.ReportPath,
			&paramsStr, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if paramsStr.Valid {
			r.ParamsJSON = json.RawMessage(paramsStr.String)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

const busyRetryAttempts = 5

// retryOnBusy retries op when SQLite reports the database as locked,
// backing off briefly between attempts.
func retryOnBusy(op func() error) error {
	delay := 10 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		time.Sleep(delay)
		if next := delay * 2; next <= 200*time.Millisecond {
			delay = next
		}
	}
	return lastErr
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
