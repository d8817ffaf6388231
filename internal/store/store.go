// Package store is the persistent per-agent repository for the mind engine.
// Each agent gets its own SQLite file; the Store owns the handle and all SQL.
//
// The engine is advisory memory, not a system of record: write methods
// swallow storage faults and return sentinel values (-1, 0) and read methods
// return empty slices, so a broken disk never surfaces into the agent's
// reasoning loop.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/openclaw/mind/internal/actions"
)

// Relevance dynamics for approved learnings.
const (
	DecayFactor       = 0.95
	MinRelevance      = 0.1
	ReactivationBoost = 0.15
)

// Log categories.
const (
	CategoryStress         = "stress"
	CategoryConfession     = "confession"
	CategoryEthics         = "ethics"
	CategoryGuidance       = "guidance"
	CategorySessionSummary = "session_summary"
)

// Categories lists all log categories in display order.
var Categories = []string{
	CategoryStress,
	CategoryConfession,
	CategoryEthics,
	CategoryGuidance,
	CategorySessionSummary,
}

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

// LogEntry is a behavioral signal. Payload is canonical JSON text; readers
// must tolerate unknown fields.
type LogEntry struct {
	ID         int64  `json:"id"`
	Category   string `json:"category"`
	Payload    string `json:"payload"`
	SessionKey string `json:"session_key"`
	CreatedAt  int64  `json:"created_at"`
}

// ActionRecord is a non-trivial tool execution.
type ActionRecord struct {
	ID           int64  `json:"id"`
	ToolName     string `json:"tool_name"`
	Summary      string `json:"summary"`
	ArgsSnapshot string `json:"args_snapshot"`
	SessionKey   string `json:"session_key"`
	CreatedAt    int64  `json:"created_at"`
}

// Learning is a tactical behavioral rule pending or approved by the user.
type Learning struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Content         string  `json:"content"`
	Rationale       string  `json:"rationale"`
	RelevanceScore  float64 `json:"relevance_score"`
	ActivationCount int64   `json:"activation_count"`
	LastActivated   int64   `json:"last_activated"`
	Approved        bool    `json:"approved"`
	CreatedAt       int64   `json:"created_at"`
}

// DreamRecord is one dream-phase invocation.
type DreamRecord struct {
	ID           int64  `json:"id"`
	DaysAnalyzed int    `json:"days_analyzed"`
	LogCount     int    `json:"log_count"`
	Proposals    string `json:"proposals"`
	CreatedAt    int64  `json:"created_at"`
}

// Store owns one agent's mind database.
type Store struct {
	agentID string
	conn    *sql.DB

	closeOnce sync.Once
	closeErr  error
}

// NormalizeAgentID trims and lowercases an agent identifier. Empty input
// defaults to "main". Characters unsafe in filenames collapse to "-".
func NormalizeAgentID(agentID string) string {
	id := strings.ToLower(strings.TrimSpace(agentID))
	if id == "" {
		return "main"
	}
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Open creates or opens the mind database for the given agent under
// <dataDir>/mind/<agent>.db and applies pending migrations.
func Open(agentID, dataDir string) (*Store, error) {
	id := NormalizeAgentID(agentID)

	dir := filepath.Join(dataDir, "mind")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create mind dir: %w", err)
	}

	path := filepath.Join(dir, id+".db")
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite creates the file with umask defaults; tighten it afterwards.
	if err := os.Chmod(path, 0o600); err != nil {
		log.Printf("chmod %s: %v", path, err)
	}

	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{agentID: id, conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// AgentID returns the normalized agent identifier this store belongs to.
func (s *Store) AgentID() string {
	return s.agentID
}

// Close closes the database handle. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func sinceMillis(sinceDays int) int64 {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	return nowMillis() - int64(sinceDays)*millisPerDay
}

// --- Log Methods ---

// AddLog appends a behavioral signal. The payload may be any
// JSON-serializable value. Returns the new row id, or -1 on failure.
func (s *Store) AddLog(category string, payload any, sessionKey string) int64 {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("mind[%s]: marshal %s payload: %v", s.agentID, category, err)
		return -1
	}
	res, err := s.conn.Exec(
		`INSERT INTO mind_log (category, payload, session_key, created_at) VALUES (?, ?, ?, ?)`,
		category, string(data), sessionKey, nowMillis(),
	)
	if err != nil {
		log.Printf("mind[%s]: insert %s log: %v", s.agentID, category, err)
		return -1
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1
	}
	return id
}

func (s *Store) queryLogs(query string, args ...any) []LogEntry {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		log.Printf("mind[%s]: query logs: %v", s.agentID, err)
		return nil
	}
	defer rows.Close() //nolint:errcheck

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Category, &e.Payload, &e.SessionKey, &e.CreatedAt); err != nil {
			log.Printf("mind[%s]: scan log: %v", s.agentID, err)
			return nil
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil
	}
	return entries
}

// GetLogs returns logs of one category within the last sinceDays days,
// newest first. sinceDays <= 0 defaults to 7.
func (s *Store) GetLogs(category string, sinceDays int) []LogEntry {
	return s.queryLogs(
		`SELECT id, category, payload, session_key, created_at FROM mind_log
		 WHERE category = ? AND created_at >= ? ORDER BY created_at DESC, id DESC`,
		category, sinceMillis(sinceDays),
	)
}

// GetAllLogs returns logs of every category within the window, newest first.
func (s *Store) GetAllLogs(sinceDays int) []LogEntry {
	return s.queryLogs(
		`SELECT id, category, payload, session_key, created_at FROM mind_log
		 WHERE created_at >= ? ORDER BY created_at DESC, id DESC`,
		sinceMillis(sinceDays),
	)
}

// GetLogCount returns the number of logs in the window, or 0 on failure.
func (s *Store) GetLogCount(sinceDays int) int {
	var count int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM mind_log WHERE created_at >= ?`, sinceMillis(sinceDays),
	).Scan(&count)
	if err != nil {
		log.Printf("mind[%s]: count logs: %v", s.agentID, err)
		return 0
	}
	return count
}

// --- Action Methods ---

// LogAction records a tool execution with a memorable one-line summary.
// Trivial internal tools are filtered out before insertion; for those the
// method writes nothing and returns -1.
func (s *Store) LogAction(toolName string, args map[string]any, sessionKey string) int64 {
	summary, ok := actions.Summarize(toolName, args)
	if !ok {
		return -1
	}

	snapshot, err := json.Marshal(args)
	if err != nil {
		snapshot = []byte("{}")
	}
	res, err := s.conn.Exec(
		`INSERT INTO mind_actions (tool_name, summary, args_snapshot, session_key, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		toolName, summary, string(snapshot), sessionKey, nowMillis(),
	)
	if err != nil {
		log.Printf("mind[%s]: insert action: %v", s.agentID, err)
		return -1
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1
	}
	return id
}

// GetRecentActions returns at most 100 actions in the window, newest first.
// A non-empty sessionKey restricts results to that session.
func (s *Store) GetRecentActions(sinceDays int, sessionKey string) []ActionRecord {
	query := `SELECT id, tool_name, summary, args_snapshot, session_key, created_at
		 FROM mind_actions WHERE created_at >= ?`
	qargs := []any{sinceMillis(sinceDays)}
	if sessionKey != "" {
		query += ` AND session_key = ?`
		qargs = append(qargs, sessionKey)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 100`

	rows, err := s.conn.Query(query, qargs...)
	if err != nil {
		log.Printf("mind[%s]: query actions: %v", s.agentID, err)
		return nil
	}
	defer rows.Close() //nolint:errcheck

	var records []ActionRecord
	for rows.Next() {
		var a ActionRecord
		if err := rows.Scan(&a.ID, &a.ToolName, &a.Summary, &a.ArgsSnapshot, &a.SessionKey, &a.CreatedAt); err != nil {
			log.Printf("mind[%s]: scan action: %v", s.agentID, err)
			return nil
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil
	}
	return records
}

// --- Learning Methods ---

const learningColumns = `id, title, content, rationale, relevance_score, activation_count, last_activated, approved, created_at`

func scanLearning(scanner interface{ Scan(...any) error }, l *Learning) error {
	var approved int
	if err := scanner.Scan(&l.ID, &l.Title, &l.Content, &l.Rationale, &l.RelevanceScore, &l.ActivationCount, &l.LastActivated, &approved, &l.CreatedAt); err != nil {
		return err
	}
	l.Approved = approved == 1
	return nil
}

// AddLearning inserts a learning with relevance 1.0 and no activations.
// Returns the new row id, or -1 on failure.
func (s *Store) AddLearning(title, content, rationale string, approved bool) int64 {
	now := nowMillis()
	res, err := s.conn.Exec(
		`INSERT INTO mind_learnings (title, content, rationale, relevance_score, activation_count, last_activated, approved, created_at)
		 VALUES (?, ?, ?, 1.0, 0, ?, ?, ?)`,
		title, content, rationale, now, boolToInt(approved), now,
	)
	if err != nil {
		log.Printf("mind[%s]: insert learning: %v", s.agentID, err)
		return -1
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1
	}
	return id
}

// ApproveLearning marks a learning as approved. No-op on unknown id.
func (s *Store) ApproveLearning(id int64) {
	if _, err := s.conn.Exec(`UPDATE mind_learnings SET approved = 1 WHERE id = ?`, id); err != nil {
		log.Printf("mind[%s]: approve learning %d: %v", s.agentID, id, err)
	}
}

// RejectLearning copies the learning into the rejection tombstone table,
// then deletes it. No-op on unknown id.
func (s *Store) RejectLearning(id int64) {
	tx, err := s.conn.Begin()
	if err != nil {
		log.Printf("mind[%s]: reject learning %d: %v", s.agentID, id, err)
		return
	}
	defer tx.Rollback() //nolint:errcheck

	var title, content string
	err = tx.QueryRow(`SELECT title, content FROM mind_learnings WHERE id = ?`, id).Scan(&title, &content)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		log.Printf("mind[%s]: reject learning %d: %v", s.agentID, id, err)
		return
	}

	if _, err := tx.Exec(
		`INSERT INTO mind_rejected_learnings (title, content, rejected_at) VALUES (?, ?, ?)`,
		title, content, nowMillis(),
	); err != nil {
		log.Printf("mind[%s]: insert tombstone for %d: %v", s.agentID, id, err)
		return
	}
	if _, err := tx.Exec(`DELETE FROM mind_learnings WHERE id = ?`, id); err != nil {
		log.Printf("mind[%s]: delete learning %d: %v", s.agentID, id, err)
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("mind[%s]: commit reject %d: %v", s.agentID, id, err)
	}
}

func (s *Store) queryLearnings(query string, args ...any) []Learning {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		log.Printf("mind[%s]: query learnings: %v", s.agentID, err)
		return nil
	}
	defer rows.Close() //nolint:errcheck

	var learnings []Learning
	for rows.Next() {
		var l Learning
		if err := scanLearning(rows, &l); err != nil {
			log.Printf("mind[%s]: scan learning: %v", s.agentID, err)
			return nil
		}
		learnings = append(learnings, l)
	}
	if err := rows.Err(); err != nil {
		return nil
	}
	return learnings
}

// GetApprovedLearnings returns approved learnings, most relevant first.
func (s *Store) GetApprovedLearnings() []Learning {
	return s.queryLearnings(
		`SELECT ` + learningColumns + ` FROM mind_learnings WHERE approved = 1 ORDER BY relevance_score DESC`,
	)
}

// GetPendingLearnings returns unapproved learnings, newest first.
func (s *Store) GetPendingLearnings() []Learning {
	return s.queryLearnings(
		`SELECT ` + learningColumns + ` FROM mind_learnings WHERE approved = 0 ORDER BY created_at DESC, id DESC`,
	)
}

// ActivateLearning boosts a learning's relevance by ReactivationBoost
// (capped at 1.0) and bumps its activation counters.
func (s *Store) ActivateLearning(id int64) {
	_, err := s.conn.Exec(
		`UPDATE mind_learnings
		 SET relevance_score = MIN(1.0, relevance_score + ?),
		     activation_count = activation_count + 1,
		     last_activated = ?
		 WHERE id = ?`,
		ReactivationBoost, nowMillis(), id,
	)
	if err != nil {
		log.Printf("mind[%s]: activate learning %d: %v", s.agentID, id, err)
	}
}

// ApplyDecay multiplies every approved learning's relevance by DecayFactor,
// then prunes approved learnings that fell below MinRelevance. Returns the
// number pruned, or 0 on failure.
func (s *Store) ApplyDecay() int {
	tx, err := s.conn.Begin()
	if err != nil {
		log.Printf("mind[%s]: decay: %v", s.agentID, err)
		return 0
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(
		`UPDATE mind_learnings SET relevance_score = relevance_score * ? WHERE approved = 1`,
		DecayFactor,
	); err != nil {
		log.Printf("mind[%s]: decay update: %v", s.agentID, err)
		return 0
	}

	res, err := tx.Exec(
		`DELETE FROM mind_learnings WHERE approved = 1 AND relevance_score < ?`,
		MinRelevance,
	)
	if err != nil {
		log.Printf("mind[%s]: decay prune: %v", s.agentID, err)
		return 0
	}
	pruned, err := res.RowsAffected()
	if err != nil {
		pruned = 0
	}

	if err := tx.Commit(); err != nil {
		log.Printf("mind[%s]: commit decay: %v", s.agentID, err)
		return 0
	}
	return int(pruned)
}

// --- Dream Methods ---

// RecordDream stores one dream-phase invocation. Returns the id, or -1.
func (s *Store) RecordDream(daysAnalyzed, logCount int, proposals string) int64 {
	res, err := s.conn.Exec(
		`INSERT INTO mind_dreams (days_analyzed, log_count, proposals, created_at) VALUES (?, ?, ?, ?)`,
		daysAnalyzed, logCount, proposals, nowMillis(),
	)
	if err != nil {
		log.Printf("mind[%s]: record dream: %v", s.agentID, err)
		return -1
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1
	}
	return id
}

// GetRecentDreams returns the most recent dreams, newest first.
// limit <= 0 defaults to 5.
func (s *Store) GetRecentDreams(limit int) []DreamRecord {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.conn.Query(
		`SELECT id, days_analyzed, log_count, proposals, created_at
		 FROM mind_dreams ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		log.Printf("mind[%s]: query dreams: %v", s.agentID, err)
		return nil
	}
	defer rows.Close() //nolint:errcheck

	var dreams []DreamRecord
	for rows.Next() {
		var d DreamRecord
		if err := rows.Scan(&d.ID, &d.DaysAnalyzed, &d.LogCount, &d.Proposals, &d.CreatedAt); err != nil {
			log.Printf("mind[%s]: scan dream: %v", s.agentID, err)
			return nil
		}
		dreams = append(dreams, d)
	}
	if err := rows.Err(); err != nil {
		return nil
	}
	return dreams
}

// --- Rejection Methods ---

// GetRejectedTitles returns up to 100 rejected learning titles, most
// recently rejected first.
func (s *Store) GetRejectedTitles() []string {
	rows, err := s.conn.Query(
		`SELECT title FROM mind_rejected_learnings ORDER BY rejected_at DESC LIMIT 100`,
	)
	if err != nil {
		log.Printf("mind[%s]: query rejected titles: %v", s.agentID, err)
		return nil
	}
	defer rows.Close() //nolint:errcheck

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			log.Printf("mind[%s]: scan rejected title: %v", s.agentID, err)
			return nil
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil
	}
	return titles
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
