package core

import "github.com/pkg/errors"

// Kind classifies errors so that callers can switch on them.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfig
	KindTransientConnect
	KindValidation
	KindNotFound
	KindReference
	KindSchema
	KindConflict
	KindStore
)

var kindNames = map[Kind]string{
	KindUnknown:          "UnknownError",
	KindConfig:           "ConfigError",
	KindTransientConnect: "TransientConnectError",
	KindValidation:       "ValidationError",
	KindNotFound:         "NotFound",
	KindReference:        "ReferenceError",
	KindSchema:           "SchemaError",
	KindConflict:         "ConflictError",
	KindStore:            "StoreError",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Error is a classified error. Err, when set, is the underlying cause (e.g. a *pq.Error).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// WrapError classifies err. The message of err is kept verbatim.
func WrapError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) Unwrap() error {
	return err.Err
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error {
	return err.Err
}

// KindOf returns the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch t := e.(type) {
		case *ValidationError, ValidationError:
			return KindValidation
		case *Error:
			return t.Kind
		}
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
