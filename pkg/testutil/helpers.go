// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/realty-forecast/internal/scenario"
)

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindScenario(results []scenario.Result, name string) *scenario.Result {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// ScenarioNames lists the result names in order.
func ScenarioNames(results []scenario.Result) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	return names
}
