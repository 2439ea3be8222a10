package repo

import (
	"regexp"
	"strings"
)

var (
	nameStripPattern    = regexp.MustCompile(`[^a-z0-9\s]`)
	branchInvalidChars  = regexp.MustCompile(`[^a-z0-9-]`)
	branchHyphenRuns    = regexp.MustCompile(`-+`)
	defaultNameFallback = "task"
)

// GenerateDefaultName proposes a workspace branch token from a free-text task
// description: lower-cased, punctuation stripped, the first three words
// longer than two characters joined with hyphens. Falls back to "task" when
// nothing survives.
func GenerateDefaultName(task string) string {
	cleaned := nameStripPattern.ReplaceAllString(strings.ToLower(task), "")

	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 2 {
			continue
		}
		words = append(words, w)
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		return defaultNameFallback
	}
	return strings.Join(words, "-")
}

// ProposeBranch picks the workspace branch for a task: the sanitized custom
// name when the user supplied one, otherwise a name derived from the task
// description.
func ProposeBranch(task, custom string) string {
	if custom != "" {
		return SanitizeBranchName(custom)
	}
	return GenerateDefaultName(task)
}

// SanitizeBranchName normalizes arbitrary user input into a git-safe branch
// name: lower-case, anything outside [a-z0-9-] becomes a hyphen, runs of
// hyphens collapse, and leading/trailing hyphens are trimmed. Idempotent:
// already-sanitized input comes back unchanged.
func SanitizeBranchName(name string) string {
	s := strings.ToLower(name)
	s = branchInvalidChars.ReplaceAllString(s, "-")
	s = branchHyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
