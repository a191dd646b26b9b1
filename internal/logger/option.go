package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// thresholdCore replaces the level check of the wrapped core with its own.
// Entries accepted here are written even if the wrapped core would drop them.
type thresholdCore struct {
	zapcore.Core

	min zapcore.Level
}

// Enabled reports whether lvl reaches the threshold.
func (c *thresholdCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min
}

//nolint:gocritic // zapcore.Core passes entries by value.
func (c *thresholdCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

//nolint:ireturn // zapcore.Core is the contract.
func (c *thresholdCore) With(fields []zapcore.Field) zapcore.Core {
	return &thresholdCore{Core: c.Core.With(fields), min: c.min}
}

// WithLevel makes the logger filter entries at lvl instead of the level it was built with.
//
//nolint:ireturn // zap.Option is the contract.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &thresholdCore{Core: core, min: lvl}
	})
}
