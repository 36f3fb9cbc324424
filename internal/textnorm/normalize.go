// Package textnorm sanitizes copy/paste artifacts out of batch-ingested
// reference text (pasted txt/jsonl/csv scripts) before it becomes a
// RunItem's input text. It deliberately stops at whitespace and
// typographic-punctuation normalization: a vendor comparison benchmark
// must hand every vendor — and score WER against — the verbatim reference
// text, so nothing here expands abbreviations, strips citation markers, or
// otherwise rewrites words. Those are TTS pre-synthesis quality
// improvements, not benchmark-fidelity requirements, and would bias the
// very thing the harness measures: how a vendor actually handles the
// script as written.
package textnorm

import (
	"regexp"
	"strings"
)

const whitespaceRegexPattern = `\s+`

const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

// Cleaner normalizes reference text before it enters a run's script.
type Cleaner struct {
	whitespacePattern *regexp.Regexp
	typography        *strings.Replacer
}

// NewCleaner builds a Cleaner with precompiled patterns, reused across the
// lifetime of a batch import.
func NewCleaner() *Cleaner {
	return &Cleaner{
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
		typography: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// Clean collapses whitespace/line-ending noise from a copy-pasted line and
// folds typographic quotes and dashes to their ASCII equivalents. It never
// adds, removes, or rewrites a word: metrics.WER scores a transcript
// against the exact string a caller passed in here, so changing wording
// would silently change what the benchmark is measuring.
func (c *Cleaner) Clean(text string) string {
	if text == "" {
		return text
	}

	collapsed := c.collapseWhitespace(text)

	return c.typography.Replace(collapsed)
}

func (c *Cleaner) collapseWhitespace(text string) string {
	replaced := c.whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(replaced)
}
