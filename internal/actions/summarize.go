// Package actions maps tool invocations to one-line memorable summaries for
// the agent's action memory.
package actions

import "strings"

// trivialTools are internal bookkeeping tools that never make a memorable
// action. All mind_* tools are trivial as well, to keep the engine from
// recording its own writes.
var trivialTools = map[string]bool{
	"session_status": true,
	"memory_search":  true,
	"memory_get":     true,
}

// IsTrivial reports whether a tool is filtered from the action log.
func IsTrivial(toolName string) bool {
	return strings.HasPrefix(toolName, "mind_") || trivialTools[toolName]
}

// Summarize maps a tool call to a short summary. The second return value is
// false for trivial tools, which must not be recorded.
func Summarize(toolName string, args map[string]any) (string, bool) {
	if IsTrivial(toolName) {
		return "", false
	}

	var summary string
	switch toolName {
	case "read":
		summary = "Read file: " + stringArg(args, "path", "file_path")
	case "write":
		summary = "Wrote file: " + stringArg(args, "path", "file_path")
	case "edit":
		summary = "Edited file: " + stringArg(args, "path", "file_path")
	case "exec", "bash":
		summary = "Ran command: " + truncate(stringArg(args, "command", "cmd"), 80)
	case "web_fetch":
		summary = "Fetched: " + truncate(stringArg(args, "url", "action"), 80)
	case "web_search":
		summary = "Searched web: " + truncate(stringArg(args, "query"), 80)
	case "browser":
		summary = "Browser action: " + truncate(stringArg(args, "action", "url"), 80)
	case "message":
		summary = "Sent message: " + truncate(stringArg(args, "text", "content"), 60)
	default:
		summary = "Used tool: " + toolName
	}

	return truncate(strings.TrimSpace(summary), 100), true
}

// stringArg returns the first non-empty string value among the given keys.
func stringArg(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// truncate shortens s to at most max runes, ending with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
