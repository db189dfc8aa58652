package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the HTTP layer can pick a status code without
// inspecting error strings. Business logic returns kinds; handlers map them.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAccessDenied
	KindConflict
	KindValidation
)

type Error struct {
	Knd    Kind
	Msg    string
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Knd: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func AccessDenied(format string, args ...interface{}) *Error {
	return &Error{Knd: KindAccessDenied, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Knd: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Knd: KindValidation, Msg: msg, Fields: fields}
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Knd
	}
	return KindUnknown
}

func FieldsOf(err error) map[string]string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsAccessDenied(err error) bool { return KindOf(err) == KindAccessDenied }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
