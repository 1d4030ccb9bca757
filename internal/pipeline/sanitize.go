/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pipeline

import (
	"regexp"
	"strings"
)

// stopPatterns is the closed set of markers that, once seen, truncate the
// rest of a raw Writer response: meta-commentary, emoji, and date stamps
// a model sometimes appends after the actual script.
var stopPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(note|as an ai|i hope this)\b.*$`),
	regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

// boilerplatePrefixes are stripped verbatim when found at the start of a
// line, a common model habit of labeling its own output.
var boilerplatePrefixes = []string{
	"Script:",
	"SCRIPT:",
	"Response:",
	"Here is the script:",
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLineRun = regexp.MustCompile(`\n{3,}`)

// Sanitize deterministically cleans a raw Writer response into a script
// body: strips boilerplate line prefixes, collapses whitespace, and
// truncates at the first line matching a stop pattern.
func Sanitize(raw string) string {
	lines := strings.Split(raw, "\n")
	var kept []string

	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		truncated := false

		for _, prefix := range boilerplatePrefixes {
			if strings.HasPrefix(strings.TrimSpace(trimmed), prefix) {
				trimmed = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(trimmed), prefix))
			}
		}

		for _, pattern := range stopPatterns {
			if pattern.MatchString(trimmed) {
				truncated = true
				break
			}
		}
		if truncated {
			break
		}

		trimmed = whitespaceRun.ReplaceAllString(trimmed, " ")
		kept = append(kept, trimmed)
	}

	out := strings.Join(kept, "\n")
	out = blankLineRun.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// IsForbiddenEmpty reports whether script is empty or consists only of
// content that sanitization would have removed anyway — a Writer
// response of pure boilerplate counts as a stage failure, not a usable
// empty script.
func IsForbiddenEmpty(script string) bool {
	return strings.TrimSpace(script) == ""
}
