package supervisor

import (
	"errors"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
)

var (
	// ErrCredentialsMissing rejects an attach when no upstream network is stored.
	ErrCredentialsMissing = ferrors.CredentialsError("no credentials stored").Build()
	// ErrAttachInFlight rejects an attach while another is in progress.
	ErrAttachInFlight = ferrors.ConflictError("attach already in progress").Build()
	// ErrInvalidInput rejects malformed operator input before any state change.
	ErrInvalidInput = ferrors.ValidationError("invalid input").Build()
)

func invalidInput(reason string) error {
	return ferrors.ValidationError("invalid input").
		WithCause(errors.New(reason)).
		WithContext("reason", reason).
		Build()
}

// IsNoCredentials reports whether err is the missing-credentials rejection.
func IsNoCredentials(err error) bool { return errors.Is(err, ErrCredentialsMissing) }

// IsAttachInFlight reports whether err is the concurrent-attach rejection.
func IsAttachInFlight(err error) bool { return errors.Is(err, ErrAttachInFlight) }

// IsInvalidInput reports whether err rejected operator input.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
