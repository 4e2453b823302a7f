package model

import (
	"regexp"
	"strings"
)

var phasePattern = regexp.MustCompile(`(?i)^\s*phase\s*(\d+)\s*$`)

// CanonicalPhase normalizes the common "phase N" spellings to "Phase N" so
// that values written by the chunker and values extracted from queries always
// collide. Anything else is returned trimmed but untouched ("Early Phase 1"
// stays as written).
func CanonicalPhase(raw string) string {
	if m := phasePattern.FindStringSubmatch(raw); m != nil {
		return "Phase " + m[1]
	}
	return strings.TrimSpace(raw)
}
