// Package store keeps evaluation history in a local SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	_ "modernc.org/sqlite"

	"github.com/spigell/repograde/internal/evaluate"
)

const defaultListLimit = 20

var (
	ErrNotFound       = errors.New("evaluation not found")
	errNotInitialized = errors.New("store not initialized")
)

// Record is one saved evaluation. Report holds the full JSON report as
// written by Save.
type Record struct {
	ID              int64           `json:"id"`
	Repository      string          `json:"repository"`
	Challenge       string          `json:"challenge"`
	ExperienceLevel string          `json:"experience_level"`
	RawScore        float64         `json:"raw_score"`
	FinalScore      float64         `json:"final_score"`
	Decision        string          `json:"decision"`
	CreatedAtUnixMs int64           `json:"created_at_unix_ms"`
	Report          json.RawMessage `json:"report,omitempty"`
}

// Summary describes the final scores of all saved evaluations.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("missing store path")
	}
	p = filepath.Clean(p)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Single-process local DB.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores the report and returns its id.
func (s *Store) Save(ctx context.Context, rep *evaluate.Report) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errNotInitialized
	}
	if rep == nil {
		return 0, errors.New("missing report")
	}

	body, err := json.Marshal(rep)
	if err != nil {
		return 0, fmt.Errorf("encoding report: %w", err)
	}

	createdAt := rep.EvaluatedAt.UnixMilli()
	if rep.EvaluatedAt.IsZero() {
		createdAt = time.Now().UnixMilli()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO evaluations(
  repository, challenge, experience_level, raw_score, final_score, decision,
  created_at_unix_ms, result_json
) VALUES(?, ?, ?, ?, ?, ?, ?, ?)
`,
		rep.Repository,
		rep.Challenge.ID,
		rep.Result.ExperienceLevel,
		rep.Result.RawScore,
		rep.Result.FinalScore,
		string(rep.Result.Decision),
		createdAt,
		string(body),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting evaluation: %w", err)
	}
	return res.LastInsertId()
}

// Get returns the evaluation with the given id, report included.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}

	var r Record
	var body string
	err := s.db.QueryRowContext(ctx, `
SELECT id, repository, challenge, experience_level, raw_score, final_score, decision, created_at_unix_ms, result_json
FROM evaluations
WHERE id = ?
`, id).Scan(
		&r.ID,
		&r.Repository,
		&r.Challenge,
		&r.ExperienceLevel,
		&r.RawScore,
		&r.FinalScore,
		&r.Decision,
		&r.CreatedAtUnixMs,
		&body,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Report = json.RawMessage(body)
	return &r, nil
}

// List returns the most recent evaluations first, without their reports.
// A non-positive limit uses the default.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, repository, challenge, experience_level, raw_score, final_score, decision, created_at_unix_ms
FROM evaluations
ORDER BY created_at_unix_ms DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID,
			&r.Repository,
			&r.Challenge,
			&r.ExperienceLevel,
			&r.RawScore,
			&r.FinalScore,
			&r.Decision,
			&r.CreatedAtUnixMs,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats summarizes every saved final score. An empty store yields a zero
// Summary.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	if s == nil || s.db == nil {
		return Summary{}, errNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, `SELECT final_score FROM evaluations`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	var scores stats.Float64Data
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return Summary{}, err
		}
		scores = append(scores, v)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	if len(scores) == 0 {
		return Summary{}, nil
	}

	sum := Summary{Count: len(scores)}
	if sum.Mean, err = scores.Mean(); err != nil {
		return Summary{}, err
	}
	if sum.Median, err = scores.Median(); err != nil {
		return Summary{}, err
	}
	if sum.Min, err = scores.Min(); err != nil {
		return Summary{}, err
	}
	if sum.Max, err = scores.Max(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return migrateSchema(db)
}

func migrateSchema(db *sql.DB) error {
	// Schema versions:
	// - v1: evaluations table
	const targetVersion = 1

	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("pragma user_version: %w", err)
	}
	if v >= targetVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS evaluations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  repository TEXT NOT NULL,
  challenge TEXT NOT NULL,
  experience_level TEXT NOT NULL,
  raw_score REAL NOT NULL,
  final_score REAL NOT NULL,
  decision TEXT NOT NULL,
  created_at_unix_ms INTEGER NOT NULL,
  result_json TEXT NOT NULL
);
`); err != nil {
		return fmt.Errorf("create evaluations: %w", err)
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at_unix_ms);`); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, targetVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}
