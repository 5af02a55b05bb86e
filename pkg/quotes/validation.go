package quotes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// MaxBatchSize is the largest number of quotes accepted by one batch insert
const MaxBatchSize = 1000

// Validator checks NewQuote payloads
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a payload validator reporting json field names
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateQuote validates a single payload
func (v *Validator) ValidateQuote(quote NewQuote) error {
	return v.validateWithPrefix(quote, "")
}

// ValidateBatch validates every payload of a batch before anything is stored.
// The reported field carries the index of the first invalid item.
func (v *Validator) ValidateBatch(batch []NewQuote) error {
	if len(batch) == 0 {
		return NewValidationError("quotes", "must contain at least one quote")
	}
	if len(batch) > MaxBatchSize {
		return NewValidationError("quotes", fmt.Sprintf("must contain at most %d quotes", MaxBatchSize))
	}
	for i, quote := range batch {
		if err := v.validateWithPrefix(quote, fmt.Sprintf("quotes[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateWithPrefix(quote NewQuote, prefix string) error {
	err := v.validate.Struct(quote)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		field := prefix
		if field == "" {
			field = "quote"
		}
		return NewValidationError(field, err.Error())
	}

	fe := fieldErrs[0]
	field := fe.Field()
	if prefix != "" {
		field = prefix + "." + field
	}
	return NewValidationError(field, validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
