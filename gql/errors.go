package gql

import (
	"errors"
	"fmt"
)

// 错误码
const (
	CodeConfiguration = "CONFIGURATION"
	CodeBadRequest    = "BAD_REQUEST"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL"
)

var (
	ErrEmptyFieldName  = errors.New("Field name cannot be null or empty.")
	ErrSearchTwice     = errors.New("Cannot apply search twice.")
	ErrFilterTwice     = errors.New("Cannot apply filter twice.")
	ErrNotIdentifiable = errors.New("Loader must be identifiable.")
	ErrNoTransaction   = errors.New("No transaction in context.")
	ErrNoFilter        = errors.New("No filter argument in context.")
)

// Error 带错误码与扩展信息的错误，graphql-go 会把 Extensions 输出到响应中
type Error struct {
	Code    string
	Message string
	Ext     map[string]interface{}
	cause   error
}

func (my *Error) Error() string {
	return my.Message
}

func (my *Error) Unwrap() error {
	return my.cause
}

// Extensions 实现 gqlerrors.ExtendedError
func (my *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"code": my.Code}
	for k, v := range my.Ext {
		ext[k] = v
	}
	return ext
}

// With 追加扩展信息
func (my *Error) With(key string, value interface{}) *Error {
	if my.Ext == nil {
		my.Ext = make(map[string]interface{})
	}
	my.Ext[key] = value
	return my
}

func newError(code string, format string, args ...interface{}) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Code: code, Message: err.Error(), cause: errors.Unwrap(err)}
}

func configError(format string, args ...interface{}) *Error {
	return newError(CodeConfiguration, format, args...)
}

func badRequest(format string, args ...interface{}) *Error {
	return newError(CodeBadRequest, format, args...)
}

func forbidden(format string, args ...interface{}) *Error {
	return newError(CodeForbidden, format, args...)
}
