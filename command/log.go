// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package command

import "go.uber.org/zap"

type (
	// Logger logs command execution. Callers plug in any sink.
	Logger interface {
		Log(LogEntry)
	}

	// LogEntry marks the several types of events a Logger receives.
	LogEntry interface {
		logEntry()
	}

	// LogLock is sent when the advisory lock is acquired or released.
	LogLock struct {
		Acquired bool
	}

	// LogApply is sent when a pending migration starts executing.
	LogApply struct {
		Version     string
		Description string
	}

	// LogSkip is sent by Migrate for a pending migration that is out of
	// order relative to the current version when out-of-order application
	// is allowed; the migration is still applied.
	LogSkip struct {
		Version string
		Reason  string
	}

	// LogDone is sent once a command finishes successfully.
	LogDone struct {
		Applied int
	}

	// LogError is sent when a command aborts with an error.
	LogError struct {
		Error error
	}

	// NopLogger discards every entry. Useful for tests and one-shot
	// replays where no sink is configured.
	NopLogger struct{}
)

func (LogLock) logEntry()  {}
func (LogApply) logEntry() {}
func (LogSkip) logEntry()  {}
func (LogDone) logEntry()  {}
func (LogError) logEntry() {}

// Log implements Logger.
func (NopLogger) Log(LogEntry) {}

// ZapLogger renders LogEntry values through a zap.SugaredLogger.
type ZapLogger struct {
	S *zap.SugaredLogger
}

// NewZapLogger builds a ZapLogger over a production zap logger. Callers
// needing custom zap configuration should construct ZapLogger directly.
func NewZapLogger() (*ZapLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{S: l.Sugar()}, nil
}

// Log implements Logger.
func (z *ZapLogger) Log(e LogEntry) {
	switch v := e.(type) {
	case LogLock:
		if v.Acquired {
			z.S.Debug("ledger lock acquired")
		} else {
			z.S.Debug("ledger lock released")
		}
	case LogApply:
		z.S.Infow("applying migration", "version", v.Version, "description", v.Description)
	case LogSkip:
		z.S.Warnw("applying migration out of order", "version", v.Version, "reason", v.Reason)
	case LogDone:
		z.S.Infow("command finished", "applied", v.Applied)
	case LogError:
		z.S.Errorw("command failed", "error", v.Error)
	}
}
