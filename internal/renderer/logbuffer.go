package renderer

import (
	"fmt"
	"strings"
	"sync"
)

// logBuffer captures combined stdout+stderr of provisioning and container
// commands for the current run. It carries its own lock so the provisioner
// can write to it while Start holds the manager lock.
type logBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *logBuffer) Append(out []byte) {
	if len(out) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.b.Write(out)
	if out[len(out)-1] != '\n' {
		l.b.WriteByte('\n')
	}
}

func (l *logBuffer) Appendf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(&l.b, format, args...)
}

func (l *logBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func (l *logBuffer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.b.Reset()
}
