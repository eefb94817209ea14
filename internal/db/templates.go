package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rjdini/jaer-sub001/internal/template"
)

// ErrTemplateNotFound is returned when no template has the requested ID.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateRecord describes a stored template without its geometry.
type TemplateRecord struct {
	TemplateID   string `json:"template_id"`
	Name         string `json:"name"`
	SegmentCount int    `json:"segment_count"`
	Source       string `json:"source,omitempty"` // e.g. "capture", "file:box.json"
	CreatedAtNs  int64  `json:"created_at_ns"`
}

// TemplateStore saves and loads templates as JSON coordinate tables.
type TemplateStore struct {
	db *DB
}

// NewTemplateStore creates a TemplateStore.
func NewTemplateStore(db *DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Save stores t under a new ID and returns its record.
func (s *TemplateStore) Save(t *template.Template, source string) (*TemplateRecord, error) {
	data, err := template.Encode(t)
	if err != nil {
		return nil, err
	}
	rec := &TemplateRecord{
		TemplateID:   uuid.New().String(),
		Name:         t.Name,
		SegmentCount: t.Len(),
		Source:       source,
		CreatedAtNs:  nowNs(),
	}
	_, err = s.db.Exec(`
		INSERT INTO templates (template_id, name, segment_count, segments_json, source, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TemplateID, rec.Name, rec.SegmentCount, string(data), nullString(source), rec.CreatedAtNs,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return rec, nil
}

// Load returns the template stored under id.
func (s *TemplateStore) Load(id string, maxSegments int) (*template.Template, error) {
	var data string
	err := s.db.QueryRow(`SELECT segments_json FROM templates WHERE template_id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}
	return template.Decode([]byte(data), maxSegments)
}

// LoadLatest returns the most recently saved template with the given name.
func (s *TemplateStore) LoadLatest(name string, maxSegments int) (*template.Template, error) {
	var data string
	err := s.db.QueryRow(`
		SELECT segments_json FROM templates
		WHERE name = ?
		ORDER BY created_at_ns DESC
		LIMIT 1`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: name %q", ErrTemplateNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}
	return template.Decode([]byte(data), maxSegments)
}

// List returns all stored templates, newest first.
func (s *TemplateStore) List() ([]TemplateRecord, error) {
	rows, err := s.db.Query(`
		SELECT template_id, name, segment_count, source, created_at_ns
		FROM templates
		ORDER BY created_at_ns DESC, template_id`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []TemplateRecord
	for rows.Next() {
		var r TemplateRecord
		var source sql.NullString
		if err := rows.Scan(&r.TemplateID, &r.Name, &r.SegmentCount, &source, &r.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		r.Source = source.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes a template. Runs that referenced it keep their summary.
func (s *TemplateStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM templates WHERE template_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return nil
}
