package std

import (
	"errors"
	"maps"

	"github.com/gofiber/fiber/v2"
)

// Extension 响应或错误的扩展字段
type Extension = map[string]interface{}

// Result 与GraphQL响应保持同一结构，普通接口也按此返回
type Result struct {
	Data       interface{}  `json:"data,omitempty"`
	Errors     []*Exception `json:"errors,omitempty"`
	Extensions Extension    `json:"extensions,omitempty"`
}

// Exception 携带HTTP状态码的错误
type Exception struct {
	Message    string        `json:"message"`
	Path       []interface{} `json:"path,omitempty"`
	Extensions Extension     `json:"extensions,omitempty"`

	status int
	cause  error
}

func NewException(status int) *Exception {
	return &Exception{status: status}
}

func (my *Exception) Error() string {
	return my.Message
}

func (my *Exception) Unwrap() error {
	return my.cause
}

// Status 未指定时按500处理
func (my *Exception) Status() int {
	if my.status <= 0 {
		return fiber.StatusInternalServerError
	}
	return my.status
}

func (my *Exception) With(key string, value interface{}) *Exception {
	if value == nil {
		return my
	}
	if my.Extensions == nil {
		my.Extensions = make(Extension)
	}
	my.Extensions[key] = value
	return my
}

func (my *Exception) WithMessage(message string) *Exception {
	if message != "" {
		my.Message = message
	}
	return my
}

// WithError 记录原因并合并原因上的扩展字段，消息为空时使用原因的消息
func (my *Exception) WithError(err error) *Exception {
	if err == nil {
		return my
	}
	my.cause = err
	var carrier interface{ Extensions() Extension }
	if errors.As(err, &carrier) {
		if my.Extensions == nil {
			my.Extensions = make(Extension)
		}
		maps.Copy(my.Extensions, carrier.Extensions())
	}
	if my.Message == "" {
		my.Message = err.Error()
	}
	return my
}

// WrapHandler 成功时输出 Result，错误交给 fiber 的 ErrorHandler
func WrapHandler(handler func(*fiber.Ctx) (any, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := handler(c)
		if err != nil {
			return err
		}
		return c.JSON(Result{Data: data})
	}
}
