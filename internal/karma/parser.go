// Package karma turns mention markers like "<@123> ++" into signed deltas.
package karma

import (
	"regexp"
	"strings"
)

// markerRe finds mention tokens trailed by a marker run. Compiled once; the
// captured ID is filtered against the message's actual mention list, so stray
// tokens for users the platform did not resolve contribute nothing.
var markerRe = regexp.MustCompile(`<@!?(\w+)>\s*([+-]+)`)

// Mention is one user tagged in a message, in message order.
type Mention struct {
	ID   string
	Name string
}

// Parse scans content for a marker run following each mention and returns the
// summed delta per user ID. A run is a contiguous sequence of '+' or '-'
// directly after the mention token (whitespace between the two is allowed).
// Mixed runs ("+-") are ambiguous and contribute nothing; so do the author's
// mentions of themselves. Parse is pure: it never touches storage.
func Parse(content string, mentions []Mention, authorID string) map[string]int {
	eligible := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		if m.ID != authorID {
			eligible[m.ID] = true
		}
	}

	deltas := make(map[string]int)
	for _, match := range markerRe.FindAllStringSubmatch(content, -1) {
		id, run := match[1], match[2]
		if !eligible[id] {
			continue
		}
		if d, ok := runDelta(run); ok {
			deltas[id] += d
		}
	}

	for id, d := range deltas {
		if d == 0 {
			delete(deltas, id)
		}
	}
	return deltas
}

// runDelta converts a homogeneous marker run into a signed magnitude.
func runDelta(run string) (int, bool) {
	if run == "" {
		return 0, false
	}
	if strings.Count(run, "+") == len(run) {
		return len(run), true
	}
	if strings.Count(run, "-") == len(run) {
		return -len(run), true
	}
	return 0, false
}
