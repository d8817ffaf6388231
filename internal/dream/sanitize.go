package dream

import "regexp"

// maxPromptLen bounds the sanitized dream prompt. Anything past this is cut
// and replaced with the truncation suffix.
const maxPromptLen = 30_000

const truncationSuffix = "\n\n...[dream logs truncated for token budget]"

const filteredMarker = "[filtered]"

// injectionPatterns are the prompt-injection idioms neutralized before the
// dream prompt leaves the engine. Log payloads are user-influenced data that
// become LLM instructions, so the whole composed prompt is scrubbed, not
// just the payloads. The set is deliberately coarse: false positives are
// acceptable, a silent bypass is not.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`(?i)new instructions?:`),
	regexp.MustCompile(`(?i)system:`),
	regexp.MustCompile(`(?i)(IMPORTANT|CRITICAL|URGENT):.*?(ignore|override|disregard)`),
	regexp.MustCompile(`(?i)</?system>`),
}

// Sanitize replaces every injection idiom with the [filtered] marker and
// truncates the result to maxPromptLen characters plus a suffix. It must be
// the last transformation applied to a dream prompt.
func Sanitize(prompt string) string {
	for _, p := range injectionPatterns {
		prompt = p.ReplaceAllString(prompt, filteredMarker)
	}
	if runes := []rune(prompt); len(runes) > maxPromptLen {
		prompt = string(runes[:maxPromptLen]) + truncationSuffix
	}
	return prompt
}
