package corolog

import (
	"github.com/joeycumines/logiface"
)

// LogifaceAdapter lets a Logger delegate to a logiface.Logger[E], so callers
// already standardised on logiface elsewhere in their stack can plug it in
// here instead of the hand-rolled Default renderer.
type LogifaceAdapter[E logiface.Event] struct {
	L *logiface.Logger[E]
}

// NewLogifaceAdapter wraps an existing logiface.Logger[E].
func NewLogifaceAdapter[E logiface.Event](l *logiface.Logger[E]) *LogifaceAdapter[E] {
	return &LogifaceAdapter[E]{L: l}
}

func (a *LogifaceAdapter[E]) IsEnabled(level Level) bool {
	return a.L.Level().Enabled() && toLogifaceLevel(level) <= a.L.Level()
}

func (a *LogifaceAdapter[E]) Log(e Entry) {
	b := a.L.Build(toLogifaceLevel(e.Level))
	if b == nil {
		return
	}
	b = b.Str("category", e.Category)
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	for k, v := range e.Fields {
		b = b.Any(k, v)
	}
	b.Log(e.Message)
}

func toLogifaceLevel(level Level) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInfo
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInfo
	}
}
