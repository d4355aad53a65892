package dataflow

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/roach88/sluice/internal/diag"
)

// ScheduleConfig is a named cron schedule a service can use as a source. A
// schedule tick produces an s64 epoch timestamp.
type ScheduleConfig struct {
	Name string `json:"name" yaml:"name"`
	Cron string `json:"cron" yaml:"cron"`
}

// ScheduleFailure is a schedule whose cron expression did not parse.
type ScheduleFailure struct {
	Name   string
	Errors diag.Violations
}

// Readable renders the schedule header with each problem one level deeper.
func (f *ScheduleFailure) Readable(indents int) string {
	prefix := strings.Repeat(diag.Indent, indents)
	return prefix + fmt.Sprintf("Schedule `%s` is invalid:\n", f.Name) +
		f.Errors.Readable(indents+1)
}

// Validate parses the cron expression with the standard five-field parser.
// A nil return means the schedule is valid.
func (s *ScheduleConfig) Validate() *ScheduleFailure {
	if _, err := cron.ParseStandard(s.Cron); err != nil {
		return &ScheduleFailure{
			Name:   s.Name,
			Errors: diag.New(fmt.Sprintf("Failed to parse cron config: %v", err)),
		}
	}
	return nil
}
