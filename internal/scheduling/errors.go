package scheduling

import "errors"

var (
	ErrInvalidServiceSet   = errors.New("one or more selected services do not exist")
	ErrNoAvailableEmployee = errors.New("no employee is available for the requested window")
	ErrInvalidDuration     = errors.New("duration must be greater than zero")
)
