package assistant

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

const (
	debugLogMaxBytes  = 2000
	debugLogKeepBytes = 1000
)

// DebugLog collects diagnostic lines for the /debug view. When the buffer
// grows past 2000 bytes it is cut to its trailing 1000 bytes; the cut drops
// the oldest content and may land mid-line. Safe for concurrent use.
type DebugLog struct {
	mu      sync.Mutex
	buf     strings.Builder
	verbose bool
}

// NewDebugLog returns an empty log. With verbose set, every entry is
// mirrored to the process logger as well.
func NewDebugLog(verbose bool) *DebugLog {
	return &DebugLog{verbose: verbose}
}

// Debugf appends the formatted message plus a trailing newline.
func (l *DebugLog) Debugf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	l.buf.WriteString(msg)
	l.buf.WriteString("\n")
	if l.buf.Len() > debugLogMaxBytes {
		tail := l.buf.String()
		tail = tail[len(tail)-debugLogKeepBytes:]
		l.buf.Reset()
		l.buf.WriteString(tail)
	}
	l.mu.Unlock()

	if l.verbose {
		log.Printf("debug: %s", msg)
	}
}

// String returns the current buffer contents.
func (l *DebugLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

// Tail returns the last n lines, newest last.
func (l *DebugLog) Tail(n int) []string {
	if n <= 0 {
		return nil
	}

	lines := strings.Split(strings.TrimRight(l.String(), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
