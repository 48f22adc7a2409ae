package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"vespers/internal/apperr"
)

// Clock supplies the current time. Services never read time.Now directly so tests can
// drive the timer deterministically.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// lookupErr maps a repository lookup failure to a typed error.
func lookupErr(op string, err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(op, format, args...)
	}
	return apperr.Internal(op, err)
}
