package assistant

import "strings"

// Composer joins multi-line input. A line ending in a backslash continues
// the question on the next line without sending, the way Shift+Enter holds
// a newline in a message box; any other line completes it.
type Composer struct {
	lines []string
}

// Add feeds one input line. When the line completes a question, Add returns
// the joined text and true and the composer resets for the next question.
// Continuation lines return ("", false) and never dispatch.
func (c *Composer) Add(line string) (string, bool) {
	if strings.HasSuffix(line, "\\") {
		c.lines = append(c.lines, strings.TrimSuffix(line, "\\"))
		return "", false
	}

	c.lines = append(c.lines, line)
	question := strings.Join(c.lines, "\n")
	c.lines = nil
	return question, true
}

// Pending reports whether a continuation is in progress.
func (c *Composer) Pending() bool {
	return len(c.lines) > 0
}

// Reset discards any partial question.
func (c *Composer) Reset() {
	c.lines = nil
}
