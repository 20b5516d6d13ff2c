package optimizer

import (
	"regexp"
	"strings"
)

// fenceRe matches the first markdown code block, with an optional info
// string on the opening line. A missing closing fence runs to end of text.
var fenceRe = regexp.MustCompile("(?s)```(?:[A-Za-z0-9_-]*[ \t]*\r?\n)?\\s*(.*?)\\s*(?:```|$)")

// StripFences returns the body of the first ```sql ... ``` block in s, or s
// trimmed when it holds no fence.
func StripFences(s string) string {
	if !strings.Contains(s, "```") {
		return strings.TrimSpace(s)
	}
	m := fenceRe.FindStringSubmatch(s)
	if m == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(m[1])
}
