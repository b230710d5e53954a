package service

import "errors"

// Sentinel errors for the save pipeline. Handlers map these onto the API
// envelope with errors.Is; everything else is an internal error.
var (
	// ErrValidation schema/shape problems in the intake payload. Raised
	// before any database access.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated no acting identity on the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden the actor may not touch the target record. Checked
	// explicitly before the write, never inferred from a zero-row update.
	ErrForbidden = errors.New("forbidden")

	// ErrStaffEmailConflict the submitted participant email belongs to a
	// staff account. Aborts the save before any write.
	ErrStaffEmailConflict = errors.New("email belongs to a staff account")
)
