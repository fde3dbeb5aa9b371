package api

import (
	"fmt"
	"regexp"

	"github.com/ignite/relaymail/internal/account"
)

// Field limits. Body bounds match the public contract: short enough to cap
// queue memory, long enough for a real message.
const (
	maxNameLength    = 64
	maxSubjectLength = 128
	minBodyLength    = 10
	maxBodyLength    = 2048
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// FieldErrors maps field names to human-readable validation messages.
// A non-empty map means the request must be rejected with 400 before any
// storage or queue interaction.
type FieldErrors map[string]string

// validateEmail checks the syntactic shape of an email address.
func validateEmail(field, value string, errs FieldErrors) {
	if value == "" {
		errs[field] = "is required"
		return
	}
	if !emailPattern.MatchString(value) {
		errs[field] = "must be a valid email address"
	}
}

// validateAccountForm validates the create/delete account payload.
func validateAccountForm(form *accountForm) FieldErrors {
	errs := FieldErrors{}
	validateEmail("email", form.Email, errs)
	return errs
}

// validateMessageForm validates the submit-message payload.
func validateMessageForm(form *messageForm) FieldErrors {
	errs := FieldErrors{}

	if form.Token == "" {
		errs["token"] = "is required"
	} else if len(form.Token) > account.TokenLength {
		errs["token"] = fmt.Sprintf("must be at most %d characters", account.TokenLength)
	}

	if len(form.FirstName) > maxNameLength {
		errs["first_name"] = fmt.Sprintf("must be at most %d characters", maxNameLength)
	}
	if len(form.LastName) > maxNameLength {
		errs["last_name"] = fmt.Sprintf("must be at most %d characters", maxNameLength)
	}
	if len(form.Subject) > maxSubjectLength {
		errs["subject"] = fmt.Sprintf("must be at most %d characters", maxSubjectLength)
	}

	validateEmail("email", form.Email, errs)

	if len(form.Body) < minBodyLength {
		errs["body"] = fmt.Sprintf("must be at least %d characters", minBodyLength)
	} else if len(form.Body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("must be at most %d characters", maxBodyLength)
	}

	return errs
}
