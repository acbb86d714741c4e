package cron

import (
	"errors"
	"fmt"
	"strings"
)

const scheduleSeparator = ";"

// ParseSchedules splits a multi-schedule specification into individual
// cron expressions. The format is: cron_expression;cron_expression2
//
// Example:
//
//	"0 8 * * 1-5;*/15 12-14 * * 1-5"
//
// Returns an error if:
//   - The spec contains no schedules
//   - Any cron expression is invalid
//   - The same expression appears twice
func ParseSchedules(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("cron spec cannot be empty")
	}

	parts := strings.Split(spec, scheduleSeparator)
	schedules := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))

	for _, part := range parts {
		expr := strings.Join(strings.Fields(part), " ")
		if expr == "" {
			continue // Skip empty schedules (e.g., trailing semicolon)
		}
		if seen[expr] {
			return nil, fmt.Errorf("invalid cron spec: duplicate schedule '%s'", expr)
		}
		seen[expr] = true

		if _, err := specParser.Parse(expr); err != nil {
			return nil, fmt.Errorf("invalid cron spec: invalid cron expression '%s': %w", expr, errors.Join(ErrInvalidCronSpec, err))
		}
		schedules = append(schedules, expr)
	}

	if len(schedules) == 0 {
		return nil, errors.New("no valid schedules found in cron spec")
	}

	return schedules, nil
}
