package sandbox

import (
	"bytes"
	"strings"
	"sync"
	"unicode/utf8"
)

// cappedBuffer collects one output stream of a child process. Writes past
// the limit are discarded but still reported as consumed so the copying
// goroutine keeps draining the pipe and the child never blocks on it.
// A limit of zero or less means unbounded.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
	frozen    bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen {
		return len(p), nil
	}

	if b.limit <= 0 {
		b.buf.Write(p)
		return len(p), nil
	}

	room := b.limit - b.buf.Len()
	if len(p) > room {
		if room > 0 {
			b.buf.Write(p[:room])
		}
		if !b.truncated {
			b.buf.Truncate(completeRunes(b.buf.Bytes()))
		}
		b.truncated = true
		return len(p), nil
	}

	b.buf.Write(p)
	return len(p), nil
}

// completeRunes returns the length of b without a trailing partial UTF-8
// sequence. Bytes that are not valid UTF-8 are kept as they are.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}

// freeze stops capture; anything written afterwards is dropped
func (b *cappedBuffer) freeze() {
	b.mu.Lock()
	b.frozen = true
	b.mu.Unlock()
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// NormalizeInput prepares program input for standard input: every line is
// trimmed, empty lines are dropped, and each remaining line ends with exactly
// one newline. Empty input stays empty.
func NormalizeInput(input string) string {
	if input == "" {
		return ""
	}

	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}

	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "\n") + "\n"
}

// withTruncationMarker appends the truncation marker to stderr once
func withTruncationMarker(stderr string) string {
	if stderr != "" && !strings.HasSuffix(stderr, "\n") {
		stderr += "\n"
	}
	return stderr + MessageTruncated + "\n"
}
