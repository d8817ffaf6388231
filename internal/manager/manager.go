// Package manager owns the per-agent Store registry, the dream-cron payload
// description handed to the external scheduler, and the dashboard aggregate.
package manager

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/openclaw/mind/internal/store"
)

// DefaultDreamCron fires the dream phase at 3 AM daily.
const DefaultDreamCron = "0 3 * * *"

// DreamCronEnv overrides the dream schedule.
const DreamCronEnv = "OPENCLAW_DREAM_CRON"

// dreamTimeoutSeconds is the budget the external scheduler enforces on a
// dream turn. The engine itself does not cancel work.
const dreamTimeoutSeconds = 120

// Manager maps normalized agent ids to open Stores. Safe for concurrent use.
type Manager struct {
	dataDir string

	mu     sync.Mutex
	stores map[string]*store.Store
}

// New creates a Manager rooted at dataDir.
func New(dataDir string) *Manager {
	return &Manager{
		dataDir: dataDir,
		stores:  make(map[string]*store.Store),
	}
}

// MindStore returns the Store for an agent, opening and memoizing it on
// first use.
func (m *Manager) MindStore(agentID string) (*store.Store, error) {
	id := store.NormalizeAgentID(agentID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.stores[id]; ok {
		return st, nil
	}
	st, err := store.Open(id, m.dataDir)
	if err != nil {
		return nil, fmt.Errorf("open mind store %q: %w", id, err)
	}
	m.stores[id] = st
	return st, nil
}

// HasMindStore reports whether a store is already open for the agent,
// without creating one.
func (m *Manager) HasMindStore(agentID string) bool {
	id := store.NormalizeAgentID(agentID)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.stores[id]
	return ok
}

// Agents returns the ids of all open stores.
func (m *Manager) Agents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.stores))
	for id := range m.stores {
		ids = append(ids, id)
	}
	return ids
}

// CloseAll closes every open store and clears the registry.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, st := range m.stores {
		if err := st.Close(); err != nil {
			log.Printf("close mind store %q: %v", id, err)
		}
	}
	m.stores = make(map[string]*store.Store)
}

// --- Dream Cron Payload ---

// CronPayload describes the recurring dream job for the external scheduler.
// The engine never executes this itself.
type CronPayload struct {
	ID             string `json:"id"`
	Expression     string `json:"expression"`
	SessionTarget  string `json:"session_target"`
	WakeMode       string `json:"wake_mode"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Message        string `json:"message"`
}

// DreamCronPayload builds the dream job description for an agent. The cron
// expression comes from OPENCLAW_DREAM_CRON; an unset or invalid value falls
// back to the 3 AM default.
func DreamCronPayload(agentID string) CronPayload {
	id := store.NormalizeAgentID(agentID)

	expr := os.Getenv(DreamCronEnv)
	if expr == "" {
		expr = DefaultDreamCron
	} else if _, err := cron.ParseStandard(expr); err != nil {
		log.Printf("invalid %s %q: %v; using default", DreamCronEnv, expr, err)
		expr = DefaultDreamCron
	}

	return CronPayload{
		ID:             "mind-dream-" + id,
		Expression:     expr,
		SessionTarget:  "isolated",
		WakeMode:       "next-heartbeat",
		TimeoutSeconds: dreamTimeoutSeconds,
		Message: "[DREAM_PHASE] Analyze recent stress patterns, confessions, and action logs. " +
			"Use mind_dream to generate the analysis prompt, then propose tactical learnings for user approval.",
	}
}

// --- Dashboard Aggregate ---

// DashboardSnapshot is the aggregate surfaced to the external dashboard UI.
type DashboardSnapshot struct {
	Agent          string                      `json:"agent"`
	Approved       []store.Learning            `json:"approved"`
	Pending        []store.Learning            `json:"pending"`
	Dreams         []store.DreamRecord         `json:"dreams"`
	Logs           map[string][]store.LogEntry `json:"logs"`
	LogCount       int                         `json:"log_count"`
	RejectedTitles []string                    `json:"rejected_titles"`
}

// Dashboard gathers the snapshot for one agent over the given window.
func (m *Manager) Dashboard(agentID string, sinceDays int) (*DashboardSnapshot, error) {
	st, err := m.MindStore(agentID)
	if err != nil {
		return nil, err
	}

	logs := make(map[string][]store.LogEntry, len(store.Categories))
	for _, category := range store.Categories {
		logs[category] = st.GetLogs(category, sinceDays)
	}

	return &DashboardSnapshot{
		Agent:          st.AgentID(),
		Approved:       st.GetApprovedLearnings(),
		Pending:        st.GetPendingLearnings(),
		Dreams:         st.GetRecentDreams(5),
		Logs:           logs,
		LogCount:       st.GetLogCount(sinceDays),
		RejectedTitles: st.GetRejectedTitles(),
	}, nil
}
