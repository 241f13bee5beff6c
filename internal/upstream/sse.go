package upstream

import (
	"bufio"
	"io"
	"strings"
)

const maxLineSize = 64 * 1024

// newScanner returns a bufio.Scanner sized for SSE lines. Each Scan yields
// one line without the trailing newline.
func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 4096), maxLineSize)
	return s
}

// parseSSELine splits one SSE line into its event type or data payload.
// Empty lines, comments and unknown fields return ok=false.
func parseSSELine(line string) (event, data string, ok bool) {
	if line == "" {
		return "", "", false
	}
	if line[0] == ':' {
		return "", "", false
	}

	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	value = strings.TrimPrefix(value, " ")

	switch key {
	case "event":
		return value, "", true
	case "data":
		return "", value, true
	default:
		return "", "", false
	}
}
