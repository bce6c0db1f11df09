// Package validation enforces the input rules for event payloads.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Shivanand-hulikatti/event-api/internal/ids"
	"github.com/Shivanand-hulikatti/event-api/internal/model"
	"github.com/Shivanand-hulikatti/event-api/internal/pagination"
)

// Client-facing messages.
const (
	MsgFieldsRequired       = "All Fields are required"
	MsgFieldsRequiredUpdate = "All Fields are required in order to update"
	MsgFileRequired         = "Image File is required"
	MsgInvalidID            = "Invalid Event ID - Incorrect ObjectId format"
	MsgIDRequired           = "Event Id is required"
	MsgInvalidSchedule      = "Schedule must use the format DD Mon, YYYY HH:MM"
	MsgTypeRequired         = "Event Type is required"
	MsgPageOutOfRange       = "Current Page no. exceeds Maximum page no."
	MsgInvalidLimit         = "limit must be a positive integer"
	MsgInvalidPage          = "page must be a positive integer"
)

// Error is a rejected input. Message is safe to return to clients.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsValidationError reports whether err is (or wraps) a validation Error.
func IsValidationError(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

// Validator checks event payloads. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the notblank rule registered. It panics if the
// rule cannot be registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// notblank rejects values that are only whitespace.
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return &Validator{validate: v}
}

// ValidateFields fails with msg when any required text field is missing
// or blank. The failing field is not reported.
func (v *Validator) ValidateFields(fields model.EventFields, msg string) error {
	if err := v.validate.Struct(fields); err != nil {
		return Message(msg)
	}
	return nil
}

// ValidateSchedule fails when schedule does not parse under the fixed layout.
func (v *Validator) ValidateSchedule(schedule string) error {
	if _, err := pagination.ParseSchedule(schedule); err != nil {
		return Message(MsgInvalidSchedule)
	}
	return nil
}

// ValidateFiles fails when no uploaded file reference is present.
func (v *Validator) ValidateFiles(files map[string]string) error {
	if err := v.validate.Var(files, "required,min=1,dive,required"); err != nil {
		return Message(MsgFileRequired)
	}
	return nil
}

// ValidateID fails when id is empty or not a well-formed identifier.
func (v *Validator) ValidateID(id string) error {
	if id == "" {
		return Message(MsgIDRequired)
	}
	if !ids.IsValid(id) {
		return Message(MsgInvalidID)
	}
	return nil
}

// ValidatePayload applies, in order, the required-fields rule, the schedule
// rule and the attachment rule, stopping at the first failure.
func (v *Validator) ValidatePayload(fields model.EventFields, files map[string]string, fieldsMsg string) error {
	if err := v.ValidateFields(fields, fieldsMsg); err != nil {
		return err
	}
	if err := v.ValidateSchedule(fields.Schedule); err != nil {
		return err
	}
	return v.ValidateFiles(files)
}

// Message builds a validation Error carrying msg.
func Message(msg string) error {
	return &Error{Message: msg}
}
