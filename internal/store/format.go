package store

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// minuteFormat renders millisecond timestamps as ISO-8601 to the minute.
const minuteFormat = "2006-01-02T15:04"

// FormatTimestamp renders a millisecond timestamp as UTC ISO-8601 to minute
// precision.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(minuteFormat)
}

// FormatRecentActions renders recent actions as markdown list lines, newest
// first. A non-empty sessionKey restricts to that session. limit <= 0
// defaults to 20. Returns "" when there is nothing to show.
func (s *Store) FormatRecentActions(sessionKey string, limit int) string {
	if limit <= 0 {
		limit = 20
	}
	records := s.GetRecentActions(7, sessionKey)
	if len(records) > limit {
		records = records[:limit]
	}
	if len(records) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, a := range records {
		fmt.Fprintf(&sb, "- [%s] %s\n", FormatTimestamp(a.CreatedAt), a.Summary)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatActionsForDream renders the action log for dream analysis: a tool
// usage tally and the most recent 30 actions. days <= 0 defaults to 7.
func (s *Store) FormatActionsForDream(days int) string {
	if days <= 0 {
		days = 7
	}
	records := s.GetRecentActions(days, "")
	if len(records) == 0 {
		return "*No tool actions recorded in this window.*"
	}

	counts := make(map[string]int)
	for _, a := range records {
		counts[a.ToolName]++
	}
	type toolCount struct {
		name  string
		count int
	}
	tally := make([]toolCount, 0, len(counts))
	for name, count := range counts {
		tally = append(tally, toolCount{name, count})
	}
	sort.Slice(tally, func(i, j int) bool {
		if tally[i].count == tally[j].count {
			return tally[i].name < tally[j].name
		}
		return tally[i].count > tally[j].count
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Tool Usage (%d days)\n", days)
	for _, tc := range tally {
		fmt.Fprintf(&sb, "- %s: %dx\n", tc.name, tc.count)
	}

	sb.WriteString("\n### Recent Actions\n")
	recent := records
	if len(recent) > 30 {
		recent = recent[:30]
	}
	for _, a := range recent {
		fmt.Fprintf(&sb, "- [%s] %s\n", FormatTimestamp(a.CreatedAt), a.Summary)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatLearning renders a learning as a single markdown list line.
func FormatLearning(l Learning) string {
	return fmt.Sprintf("- **%s**: %s (relevance %.2f, activated %dx)",
		l.Title, l.Content, l.RelevanceScore, l.ActivationCount)
}

// FormatLearnings renders learnings as markdown list lines, one per learning.
func FormatLearnings(learnings []Learning) string {
	lines := make([]string, 0, len(learnings))
	for _, l := range learnings {
		lines = append(lines, FormatLearning(l))
	}
	return strings.Join(lines, "\n")
}
