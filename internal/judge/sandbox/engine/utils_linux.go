//go:build linux

package engine

import (
	"io"
	"os"
	"strings"
	"time"
)

func durationFromMs(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// readLimitedFile reads at most maxBytes from path, appending a truncation
// marker when the file is larger than the cap.
func readLimitedFile(path string, maxBytes int64) string {
	if path == "" || maxBytes <= 0 {
		return ""
	}
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return ""
	}
	if int64(len(data)) > maxBytes {
		return string(data[:maxBytes]) + truncationMarker
	}
	return string(data)
}

func appendMarker(s, marker string) string {
	if s == "" {
		return marker
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s + marker
}

func buildEnv(env []string) []string {
	if len(env) > 0 {
		return env
	}
	return []string{"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"}
}
