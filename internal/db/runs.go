package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Run is the summary of one tracker invocation.
type Run struct {
	RunID        string  `json:"run_id"`
	Source       string  `json:"source"` // udp, serial, pcap or text
	TemplateID   string  `json:"template_id,omitempty"`
	TemplateName string  `json:"template_name"`
	Mode         string  `json:"mode"`
	StartedAtNs  int64   `json:"started_at_ns"`
	EndedAtNs    int64   `json:"ended_at_ns,omitempty"`
	Events       uint64  `json:"events"`
	Applied      uint64  `json:"applied"`
	TooFar       uint64  `json:"too_far"`
	NoMatch      uint64  `json:"no_match"`
	Folds        uint64  `json:"folds"`
	SkippedFolds uint64  `json:"skipped_folds"`
	Syntheses    uint64  `json:"syntheses"`
	MeanAbsErr   float64 `json:"mean_abs_err"`
}

// RunStore records tracker runs.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Start inserts a run row. RunID and StartedAtNs are filled in when empty.
func (s *RunStore) Start(r *Run) error {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.StartedAtNs == 0 {
		r.StartedAtNs = nowNs()
	}
	_, err := s.db.Exec(`
		INSERT INTO tracking_runs (run_id, source, template_id, template_name, mode, started_at_ns)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Source, nullString(r.TemplateID), r.TemplateName, r.Mode, r.StartedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish writes the final counters for a run started with Start.
func (s *RunStore) Finish(r *Run) error {
	if r.EndedAtNs == 0 {
		r.EndedAtNs = nowNs()
	}
	result, err := s.db.Exec(`
		UPDATE tracking_runs
		SET ended_at_ns = ?,
		    template_name = ?,
		    events = ?,
		    applied = ?,
		    too_far = ?,
		    no_match = ?,
		    folds = ?,
		    skipped_folds = ?,
		    syntheses = ?,
		    mean_abs_err = ?
		WHERE run_id = ?`,
		r.EndedAtNs, r.TemplateName, r.Events, r.Applied, r.TooFar, r.NoMatch,
		r.Folds, r.SkippedFolds, r.Syntheses, r.MeanAbsErr, r.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", r.RunID)
	}
	return nil
}

// Get returns one run.
func (s *RunStore) Get(id string) (*Run, error) {
	row := s.db.QueryRow(runColumns+` WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return r, err
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *RunStore) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(runColumns+` ORDER BY started_at_ns DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const runColumns = `
	SELECT run_id, source, template_id, template_name, mode, started_at_ns, ended_at_ns,
	       events, applied, too_far, no_match, folds, skipped_folds, syntheses, mean_abs_err
	FROM tracking_runs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var templateID sql.NullString
	var ended sql.NullInt64
	var meanErr sql.NullFloat64
	err := sc.Scan(
		&r.RunID, &r.Source, &templateID, &r.TemplateName, &r.Mode, &r.StartedAtNs, &ended,
		&r.Events, &r.Applied, &r.TooFar, &r.NoMatch, &r.Folds, &r.SkippedFolds, &r.Syntheses, &meanErr,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.TemplateID = templateID.String
	r.EndedAtNs = ended.Int64
	r.MeanAbsErr = meanErr.Float64
	return &r, nil
}
