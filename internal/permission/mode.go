// Package permission arbitrates tool invocations: immediate policy
// decisions where a rule matches, and queued human-approval requests
// everywhere else.
package permission

import "fmt"

// Mode is an agent's tool-approval policy.
type Mode string

const (
	// ModeDefault queues anything not explicitly allowed.
	ModeDefault Mode = "default"
	// ModeAcceptEdits auto-allows edit-class tools.
	ModeAcceptEdits Mode = "accept-edits"
	// ModePlan denies writes outside the plan scratch directory.
	ModePlan Mode = "plan"
)

// ParseMode converts a mode string (config or command argument) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "default", "":
		return ModeDefault, nil
	case "accept-edits", "acceptEdits":
		return ModeAcceptEdits, nil
	case "plan":
		return ModePlan, nil
	default:
		return ModeDefault, fmt.Errorf("unknown permission mode %q", s)
	}
}

// Cycle returns the next mode in the default -> accept-edits -> plan cycle.
func (m Mode) Cycle() Mode {
	switch m {
	case ModeDefault:
		return ModeAcceptEdits
	case ModeAcceptEdits:
		return ModePlan
	default:
		return ModeDefault
	}
}
