package domain

import "errors"

var (
	// ErrInvalidMode is returned when a mode other than speed or study is requested.
	ErrInvalidMode = errors.New("invalid quiz mode")
	// ErrUnauthorizedSession is returned when a session is missing or owned by another user.
	ErrUnauthorizedSession = errors.New("session not found or not owned by user")
	// ErrInvalidOption indicates the selected option does not belong to the question.
	ErrInvalidOption = errors.New("option does not belong to question")
	// ErrSessionAlreadyCompleted is returned when an answer arrives for a finished session.
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	// ErrMissingParameter is returned when a required identifier is empty.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrSessionNotFound is returned by stores when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrOptionNotFound is returned by stores when an option/question pair is unknown.
	ErrOptionNotFound = errors.New("option not found")
	// ErrUserNotFound is returned by stores when a user has no recorded activity.
	ErrUserNotFound = errors.New("user not found")

	// ErrInternal marks storage or infrastructure failures.
	ErrInternal = errors.New("internal error")
)

// InternalError hides a storage failure behind ErrInternal while keeping the
// cause available to loggers through Unwrap.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return ErrInternal.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}
