// Package identity renders the Spiritual Biology section of the agent's
// system prompt: immutable principles, approved tactical learnings, the
// logging protocol, recent action memory, and a cost reminder.
package identity

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openclaw/mind/internal/store"
)

// cacheTTL bounds staleness of the rendered section. The cache is prompt
// decoration, not authorization, so a slightly stale read is acceptable.
const cacheTTL = 5 * time.Minute

// minActivationWordLen filters short words out of selective activation.
const minActivationWordLen = 4

const protocolText = `When the user shows frustration or corrects you, log it with mind_log_stress. ` +
	`When your confidence in an answer is below 70%, confess it with mind_confess_uncertainty before proceeding. ` +
	`When you refuse a request on ethical grounds, log it immediately with mind_log_ethical_refusal; refusing harm is a success, not a failure. ` +
	`When the user gives you guidance about how to work, log it with mind_log_guidance. ` +
	`Write all logs in the language of the conversation.`

const costText = `Every model call and tool invocation costs the user money. ` +
	`Prefer the cheapest action that accomplishes the task, batch related work, and do not repeat reads you have already done.`

// Builder renders the section and keeps a single-slot cache per agent.
// Concurrent refreshes are last-write-wins.
type Builder struct {
	mu     sync.Mutex
	cached string
	at     time.Time
	agent  string
}

// NewBuilder returns a Builder with an empty cache.
func NewBuilder() *Builder {
	return &Builder{}
}

// Invalidate drops the cached section.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	b.cached = ""
	b.at = time.Time{}
	b.mu.Unlock()
}

// Build returns the Spiritual Biology section for the store's agent. When a
// session key is provided, learnings whose content overlaps the last day's
// tool activity (across all sessions) are activated first, reinforcing them
// against decay.
func (b *Builder) Build(st *store.Store, sessionKey string) string {
	b.mu.Lock()
	if b.cached != "" && b.agent == st.AgentID() && time.Since(b.at) < cacheTTL {
		cached := b.cached
		b.mu.Unlock()
		return cached
	}
	b.mu.Unlock()

	if sessionKey != "" {
		activateRelevant(st)
	}

	formatted := render(st, sessionKey)

	b.mu.Lock()
	b.cached = formatted
	b.at = time.Now()
	b.agent = st.AgentID()
	b.mu.Unlock()

	return formatted
}

// activateRelevant boosts approved learnings whose content shares a word
// with the last day's action summaries.
func activateRelevant(st *store.Store) {
	words := make(map[string]bool)
	for _, a := range st.GetRecentActions(1, "") {
		for _, w := range strings.Fields(strings.ToLower(a.Summary)) {
			w = strings.Trim(w, ".,:;!?\"'()[]")
			if len(w) > minActivationWordLen-1 {
				words[w] = true
			}
		}
	}
	if len(words) == 0 {
		return
	}

	for _, l := range st.GetApprovedLearnings() {
		content := strings.ToLower(l.Content)
		for w := range words {
			if strings.Contains(content, w) {
				st.ActivateLearning(l.ID)
				break
			}
		}
	}
}

func render(st *store.Store, sessionKey string) string {
	var sb strings.Builder

	sb.WriteString("## Spiritual Biology\n\n")

	sb.WriteString("### Immutable Core Principles\n")
	for i, p := range Principles() {
		fmt.Fprintf(&sb, "%d. **%s**: %s\n", i+1, p.Name, p.Rule)
	}

	sb.WriteString("\n### Tactical Learnings\n")
	approved := st.GetApprovedLearnings()
	if len(approved) == 0 {
		sb.WriteString("*No approved learnings yet.*\n")
	} else {
		sb.WriteString(store.FormatLearnings(approved))
		sb.WriteString("\n")
	}

	sb.WriteString("\n### Protocol\n")
	sb.WriteString(protocolText)
	sb.WriteString("\n")

	if recent := st.FormatRecentActions(sessionKey, 10); recent != "" {
		sb.WriteString("\n### Action Memory\n")
		sb.WriteString(recent)
		sb.WriteString("\n")
	}

	sb.WriteString("\n### Cost Awareness\n")
	sb.WriteString(costText)

	return sb.String()
}
