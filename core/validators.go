package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "{0} must not be blank"

	attendanceStatusTag  = "attendance_status"
	attendanceStatusText = "{0} must be one of P (present), F (absent) or J (justified)"

	recordKindTag  = "record_kind"
	recordKindText = "{0} must be one of MANUAL, IMPORTED or AUTO"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "{0} is required"

	attendanceStatuses = map[string]bool{"P": true, "F": true, "J": true}
	recordKinds        = map[string]bool{"MANUAL": true, "IMPORTED": true, "AUTO": true}
)

// Validator validates structs and turns failures into *ValidationError with english messages.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return &Validator{validate: validate, translator: translator}
}

// Struct validates s. Field errors are keyed by the json tag of the field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return errors.Wrap(err, "validating")
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(v.translator)})
	}
	return NewValidationError(errors.New(flds[0].Error), flds...)
}

// Var validates a single value against tag, reporting failures under field.
func (v *Validator) Var(field string, value interface{}, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return errors.Wrap(err, "validating "+field)
	}
	msg := vErrs[0].Translate(v.translator)
	if f := vErrs[0].Field(); f != "" {
		msg = strings.Replace(msg, f, field, 1)
	} else {
		msg = field + " " + strings.TrimSpace(msg)
	}
	return NewValidationError(errors.New(msg), FieldError{Field: field, Error: msg})
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(attendanceStatusTag, attendanceStatusValidation)
	RegisterCustomTranslation(validate, translator, attendanceStatusTag, attendanceStatusText)

	_ = validate.RegisterValidation(recordKindTag, recordKindValidation)
	RegisterCustomTranslation(validate, translator, recordKindTag, recordKindText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func attendanceStatusValidation(fl validator.FieldLevel) bool {
	return attendanceStatuses[fl.Field().String()]
}

func recordKindValidation(fl validator.FieldLevel) bool {
	return recordKinds[fl.Field().String()]
}
