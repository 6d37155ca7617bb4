package attendance

import "errors"

// Kind classifies workflow failures into the two buckets the HTTP layer
// cares about: bad input versus a collaborator falling over.
type Kind int

const (
	// KindValidation covers caller mistakes: empty fields, images with no
	// detectable face. Mapped to a client error, never retried.
	KindValidation Kind = iota
	// KindCollaborator covers failures of the face service or the database.
	// Mapped to a server error carrying the underlying message.
	KindCollaborator
)

// Error is a workflow failure with a closed kind enumeration.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNoFacesDetected is the take-attendance failure for a classroom image in
// which the extractor found zero faces.
var ErrNoFacesDetected = &Error{Kind: KindValidation, Msg: "no faces detected in the classroom image"}

// ErrNoFaceDetected is the enrollment failure for a registration photo with
// no detectable face.
var ErrNoFaceDetected = &Error{Kind: KindValidation, Msg: "no face detected in the image"}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func collaboratorError(msg string, err error) *Error {
	return &Error{Kind: KindCollaborator, Msg: msg, Err: err}
}

// IsValidation reports whether err is a caller error rather than a
// collaborator failure.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindValidation
}
