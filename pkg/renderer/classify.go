package renderer

import (
	"errors"
	"strings"
)

// Action is what the frame loop does after a failed frame.
type Action int

const (
	// ActionNone means the frame was presented.
	ActionNone Action = iota
	// ActionSkip drops the frame; the next one is expected to succeed.
	ActionSkip
	// ActionReconfigure reconfigures the surface before the next frame.
	ActionReconfigure
	// ActionFatal stops rendering.
	ActionFatal
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSkip:
		return "skip"
	case ActionReconfigure:
		return "reconfigure"
	case ActionFatal:
		return "fatal"
	}
	return "unknown"
}

// ErrOutOfMemory marks errors after which rendering cannot continue.
var ErrOutOfMemory = errors.New("renderer: out of memory")

// Classify maps a frame error to the action the loop should take. Surface
// errors only carry a message, so they are recognized by it.
func Classify(err error) Action {
	if err == nil {
		return ActionNone
	}
	if errors.Is(err, ErrOutOfMemory) {
		return ActionFatal
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "out of memory"), strings.Contains(msg, "outofmemory"):
		return ActionFatal
	case strings.Contains(msg, "lost"), strings.Contains(msg, "outdated"):
		return ActionReconfigure
	}
	return ActionSkip
}
