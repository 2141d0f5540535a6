// Package store persists planweaver artifacts to SQLite for audit.
//
// Plans, runs and evaluations are stored as JSON documents keyed by id;
// graph processing-log entries get their own rows so the audit trail stays
// queryable without unpacking documents. The store is an external record,
// never an input: nothing in the pipeline reads back from it to make
// decisions.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"planweaver/internal/evaluation"
	"planweaver/internal/ir"
	"planweaver/internal/logging"
	"planweaver/internal/planner"
	"planweaver/internal/simulation"

	_ "github.com/mattn/go-sqlite3"
)

// AuditStore records pipeline artifacts in a local SQLite database.
type AuditStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id         TEXT PRIMARY KEY,
	graph_id   TEXT NOT NULL,
	document   TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	graph_id   TEXT NOT NULL,
	mode       TEXT NOT NULL,
	seed       INTEGER NOT NULL,
	score      REAL NOT NULL,
	document   TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluations (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	verdict    TEXT NOT NULL,
	score      REAL NOT NULL,
	document   TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS graph_log (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	graph_id  TEXT NOT NULL,
	event     TEXT NOT NULL,
	payload   TEXT,
	logged_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_graph ON runs(graph_id);
CREATE INDEX IF NOT EXISTS idx_graph_log_graph ON graph_log(graph_id);
`

// Open initializes the SQLite database at the given path.
func Open(path string) (*AuditStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("pragma failed (%s): %v", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("audit store opened at %s", path)
	return &AuditStore{db: db, dbPath: path}, nil
}

// Close releases the database connection.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// SavePlan records an execution plan document.
func (s *AuditStore) SavePlan(plan *planner.ExecutionPlan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to serialize plan %s: %w", plan.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO plans (id, graph_id, document, created_at) VALUES (?, ?, ?, ?)`,
		plan.ID, plan.GraphID, string(doc), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}
	logging.StoreDebug("saved plan %s (%d steps)", plan.ID, len(plan.Steps))
	return nil
}

// SaveRun records a simulation run document.
func (s *AuditStore) SaveRun(run *simulation.Run) error {
	doc, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run %s: %w", run.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO runs (id, graph_id, mode, seed, score, document, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.GraphID, string(run.Mode), run.Seed, run.Score, string(doc), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	logging.StoreDebug("saved run %s score=%.3f", run.ID, run.Score)
	return nil
}

// SaveEvaluation records an evaluation result document.
func (s *AuditStore) SaveEvaluation(result *evaluation.Result) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize evaluation %s: %w", result.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO evaluations (id, run_id, verdict, score, document, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID, result.RunID, string(result.Verdict), result.OverallScore,
		string(doc), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save evaluation %s: %w", result.ID, err)
	}
	logging.StoreDebug("saved evaluation %s verdict=%s", result.ID, result.Verdict)
	return nil
}

// SaveGraphLog appends the graph's processing-log entries as audit rows.
// Entries are append-only upstream, so re-saving a graph only needs the
// entries past the already-persisted count.
func (s *AuditStore) SaveGraphLog(g *ir.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var persisted int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM graph_log WHERE graph_id = ?`, g.ID).Scan(&persisted); err != nil {
		return fmt.Errorf("failed to count log rows for %s: %w", g.ID, err)
	}
	if persisted >= len(g.Log) {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin log transaction: %w", err)
	}
	for _, entry := range g.Log[persisted:] {
		if _, err := tx.Exec(
			`INSERT INTO graph_log (graph_id, event, payload, logged_at) VALUES (?, ?, ?, ?)`,
			g.ID, entry.Event, entry.Payload, entry.Timestamp.UnixMilli()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save log entry for %s: %w", g.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log entries for %s: %w", g.ID, err)
	}
	logging.StoreDebug("saved %d log entries for graph %s", len(g.Log)-persisted, g.ID)
	return nil
}

// LoadRun retrieves a run document by id.
func (s *AuditStore) LoadRun(id string) (*simulation.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc string
	err := s.db.QueryRow(`SELECT document FROM runs WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	var run simulation.Run
	if err := json.Unmarshal([]byte(doc), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns run ids for a graph, newest first.
func (s *AuditStore) ListRuns(graphID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id FROM runs WHERE graph_id = ? ORDER BY created_at DESC`, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", graphID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
