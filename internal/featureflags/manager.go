// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// ActivityStream gates the /api/ws/activity socket.
const ActivityStream = "activity_stream"

// Defaults applies when FEATURE_FLAGS is empty.
const Defaults = ActivityStream + "=on"

// rule is a parsed flag value: the share of users, 0 to 100, that see the flag.
type rule struct {
	percent int
}

// Manager evaluates flags parsed from a comma separated key=value list,
// e.g. "activity_stream=25%,drafts=off".
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Values are on/true/1, off/false/0 or N% for a
// deterministic per-user rollout. Malformed pairs and values are skipped,
// which leaves the flag off.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name := normalize(key)
		if name == "" {
			continue
		}
		if r, ok := parseRule(normalize(value)); ok {
			rules[name] = r
		}
	}
	return &Manager{rules: rules}
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{percent: 100}, true
	case "off", "false", "0":
		return rule{percent: 0}, true
	}
	raw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rule{}, false
	}
	pct, err := strconv.Atoi(raw)
	if err != nil {
		return rule{}, false
	}
	return rule{percent: min(max(pct, 0), 100)}, true
}

// Enabled reports whether flag name is on for userID. Unknown flags are off,
// and a partial rollout is off for anonymous callers.
func (m *Manager) Enabled(name, userID string) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	r, ok := m.rules[name]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == "":
		return false
	default:
		return rolloutBucket(name, userID) < r.percent
	}
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID string) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// rolloutBucket maps a user to 0..99, stable per flag.
func rolloutBucket(name, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + userID))
	return int(h.Sum32() % 100)
}
