package validator

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
)

var global *validator.Validate

const (
	ErrFieldRequired      = "is required"
	ErrFieldExceedsMaxLen = "exceeds maximum length"
	ErrFieldBelowMinLen   = "is below minimum length"
	ErrFieldExceedsMaxVal = "exceeds maximum value"
	ErrFieldBelowMinVal   = "is below minimum value"
	ErrInvalidEmail       = "must be a valid email address"
	ErrUnknownValidation  = "is invalid"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("notblank", validateNotBlank)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

// jsonFieldName reports fields by their wire name so messages read like the
// request the visitor sent.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// validateNotBlank treats whitespace-only strings the same as empty ones.
func validateNotBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(field.String()) != ""
}

// FieldError describes the first constraint a struct failed.
type FieldError struct {
	Field string
	Tag   string
	msg   string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.msg
}

// Missing reports whether the field was absent or blank rather than malformed.
func (e *FieldError) Missing() bool {
	return e.Tag == "required" || e.Tag == "notblank"
}

func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return err
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required", "notblank":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "email":
		msg = ErrInvalidEmail
	case "oneof":
		msg = "must be one of: " + strings.ReplaceAll(ve.Param(), " ", ", ")
	default:
		msg = ErrUnknownValidation
	}
	return &FieldError{Field: ve.Field(), Tag: ve.Tag(), msg: msg}
}
