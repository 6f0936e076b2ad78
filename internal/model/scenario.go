package model

import (
	"fmt"
	"sort"
	"strings"
)

// ScenarioAny holds data that does not vary between scenarios.
const ScenarioAny = "any"

// DiffPrefix marks derived difference scenarios.
const DiffPrefix = "diff_"

// DiffScenarioName returns the name of the derived scenario a - b.
func DiffScenarioName(a, b string) string {
	return fmt.Sprintf("%s%s_minus_%s", DiffPrefix, a, b)
}

// IsDiffScenario reports whether name is a derived difference scenario.
func IsDiffScenario(name string) bool {
	return strings.HasPrefix(name, DiffPrefix)
}

// IsRawScenario reports whether name is a scenario supplied as input,
// i.e. neither the shared pseudo-scenario nor a derived one.
func IsRawScenario(name string) bool {
	return name != ScenarioAny && !IsDiffScenario(name)
}

// RawScenarios filters names down to raw scenarios and sorts them.
func RawScenarios(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if IsRawScenario(n) && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// ScenarioLess orders scenario names with ScenarioAny first and the rest
// lexicographically.
func ScenarioLess(a, b string) bool {
	if a == b {
		return false
	}
	if a == ScenarioAny {
		return true
	}
	if b == ScenarioAny {
		return false
	}
	return a < b
}
