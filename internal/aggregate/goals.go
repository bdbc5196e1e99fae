package aggregate

import (
	"encoding/json"
	"strings"
)

// DefaultStrategicGoals is used when the user has not saved any goals.
var DefaultStrategicGoals = []string{
	"Drive revenue growth",
	"Build and develop the team",
	"Improve operational efficiency",
}

// ParseStrategicGoals reads goals stored either as a JSON array of strings
// or as newline-delimited text. Blank entries are dropped; when nothing is
// left the default list is returned.
func ParseStrategicGoals(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultGoals()
	}

	var candidates []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
			candidates = strings.Split(raw, "\n")
		}
	} else {
		candidates = strings.Split(raw, "\n")
	}

	goals := make([]string, 0, len(candidates))
	for _, g := range candidates {
		if g = strings.TrimSpace(g); g != "" {
			goals = append(goals, g)
		}
	}
	if len(goals) == 0 {
		return defaultGoals()
	}
	return goals
}

func defaultGoals() []string {
	return append([]string(nil), DefaultStrategicGoals...)
}
