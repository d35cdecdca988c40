package hedge

import (
	"os"

	"github.com/rs/zerolog"
)

// debugLogger is the package-level logger used when a Config's Debug flag
// is set, constructed the same way as the teacher's httpclient debugLogger.
// It is never used when Debug is false, so a hedged call that never opts
// in pays no logging cost beyond the boolean checks below.
var debugLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func logAttemptLaunched[T any, S any](debug bool, a *AttemptExecution[T, S]) {
	if !debug {
		return
	}
	debugLogger.Debug().
		Str("attempt.type", a.Type.String()).
		Int("attempt.index", a.Index).
		Msg("hedge: attempt launched")
}

func logAttemptRejected[T any, S any](debug bool, a *AttemptExecution[T, S]) {
	if !debug {
		return
	}
	o, _ := a.Outcome()
	ev := debugLogger.Debug().
		Str("attempt.type", a.Type.String()).
		Int("attempt.index", a.Index)
	if !o.IsSuccess() {
		ev = ev.AnErr("attempt.err", o.Err)
	}
	ev.Msg("hedge: attempt rejected by validator")
}

func logAttemptAccepted[T any, S any](debug bool, a *AttemptExecution[T, S]) {
	if !debug {
		return
	}
	debugLogger.Debug().
		Str("attempt.type", a.Type.String()).
		Int("attempt.index", a.Index).
		Msg("hedge: attempt accepted")
}

func logParentCancelled(debug bool, err error) {
	if !debug {
		return
	}
	debugLogger.Debug().Err(err).Msg("hedge: parent context cancelled")
}
