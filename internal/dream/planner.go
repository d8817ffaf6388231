// Package dream builds the Dream Phase instruction: a sanitized synthesis of
// recent behavioral signals, action logs, current learnings, and rejection
// tombstones, followed by fixed analysis instructions. The analyzing model
// runs externally; the planner only composes the prompt and applies decay.
package dream

import (
	"fmt"
	"strings"

	"github.com/openclaw/mind/internal/identity"
	"github.com/openclaw/mind/internal/store"
)

// Day window bounds for a dream phase.
const (
	MinDays     = 1
	MaxDays     = 30
	DefaultDays = 7
)

// Result is the outcome of one dream-phase plan.
type Result struct {
	LogCount int    `json:"log_count"`
	Pruned   int    `json:"pruned"`
	Prompt   string `json:"prompt"`
}

var categoryTitles = map[string]string{
	store.CategoryStress:         "Stress Signals",
	store.CategoryConfession:     "Confessions",
	store.CategoryEthics:         "Ethical Refusals",
	store.CategoryGuidance:       "Guidance Received",
	store.CategorySessionSummary: "Session Summaries",
}

const preamble = `# Dream Phase

You are reviewing your own recent behavior. Below are the behavioral signals
logged since your last dream, your action history, your current approved
learnings, and learnings the user has already rejected.`

// Plan clamps the analysis window, applies relevance decay, composes the
// dream instruction from the store's recent state, sanitizes it, and records
// the dream. Proposals are generated externally and saved separately, so the
// recorded dream carries an empty proposals column.
func Plan(st *store.Store, daysToAnalyze int) Result {
	days := daysToAnalyze
	if days == 0 {
		days = DefaultDays
	}
	if days < MinDays {
		days = MinDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	logCount := st.GetLogCount(days)
	pruned := st.ApplyDecay()

	var sb strings.Builder
	sb.WriteString(preamble)
	sb.WriteString("\n")

	total := 0
	for _, category := range store.Categories {
		entries := st.GetLogs(category, days)
		if len(entries) == 0 {
			continue
		}
		total += len(entries)
		fmt.Fprintf(&sb, "\n## %s (%d)\n", categoryTitles[category], len(entries))
		for i, e := range entries {
			fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, store.FormatTimestamp(e.CreatedAt), e.Payload)
		}
	}
	if total == 0 {
		sb.WriteString("\n*No behavioral signals in this window.*\n")
	}

	sb.WriteString("\n## Action Log\n")
	sb.WriteString(st.FormatActionsForDream(days))
	sb.WriteString("\n")

	sb.WriteString("\n## Current Approved Learnings\n")
	if approved := st.GetApprovedLearnings(); len(approved) == 0 {
		sb.WriteString("*None yet.*\n")
	} else {
		sb.WriteString(store.FormatLearnings(approved))
		sb.WriteString("\n")
	}

	if rejected := st.GetRejectedTitles(); len(rejected) > 0 {
		sb.WriteString("\n## Previously Rejected Learnings (DO NOT re-propose)\n")
		for _, title := range rejected {
			fmt.Fprintf(&sb, "- %s\n", title)
		}
	}

	sb.WriteString("\n## Immutable Core Principles\n")
	for i, p := range identity.Principles() {
		fmt.Fprintf(&sb, "%d. **%s**: %s\n", i+1, p.Name, p.Rule)
	}

	sb.WriteString("\n## Analysis Instructions\n")
	sb.WriteString(analysisInstructions)

	prompt := Sanitize(sb.String())

	st.RecordDream(days, logCount, "")

	return Result{LogCount: logCount, Pruned: pruned, Prompt: prompt}
}

const analysisInstructions = `1. Discard stress signals logged within 30 minutes after an ethical refusal. Those reflect the conscience working as intended, not a behavioral failure.
2. Identify recurring patterns across the remaining signals. Look for repeated corrections about the same habit.
3. Propose at most 3 tactical learnings, each 50 words or fewer. Learnings are tactical behavior adjustments, never ethical rules.
4. Self-critique each proposal: would it have prevented at least one logged signal? Drop it if not.
5. The five core principles above are immutable. No learning may override, weaken, or reinterpret them.`
