package std

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
)

const (
	// LocaleEnglish 英文语言码
	LocaleEnglish = "en"
	// LocaleChinese 中文语言码
	LocaleChinese = "zh"
)

// FieldError 字段级错误信息
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 封装后的校验错误，字段名使用json名称
type ValidationError struct {
	fields []FieldError
	err    error
}

func (my *ValidationError) Error() string {
	if len(my.fields) > 0 {
		messages := make([]string, 0, len(my.fields))
		for _, f := range my.fields {
			messages = append(messages, f.Message)
		}
		return strings.Join(messages, "; ")
	}
	if my.err != nil {
		return my.err.Error()
	}
	return "参数校验失败"
}

func (my *ValidationError) Unwrap() error { return my.err }

// Fields 返回字段级错误
func (my *ValidationError) Fields() []FieldError { return my.fields }

// Extensions 实现 graphql 的扩展错误
func (my *ValidationError) Extensions() Extension {
	ext := Extension{"code": "VALIDATION"}
	if len(my.fields) > 0 {
		fields := make(Extension, len(my.fields))
		for _, f := range my.fields {
			fields[f.Field] = f.Message
		}
		ext["fields"] = fields
	}
	return ext
}

// Validator 公共校验器，封装了 go-playground/validator 并支持多语言翻译
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator 创建校验器，默认使用简体中文
func NewValidator(locale ...string) (*Validator, error) {
	enLocale, zhLocale := en.New(), zh.New()
	universal := ut.New(enLocale, enLocale, zhLocale)

	name := LocaleChinese
	if len(locale) > 0 && locale[0] != "" {
		name = locale[0]
	}
	translator, _ := universal.GetTranslator(name)

	v := validator.New()
	var err error
	switch translator.Locale() {
	case LocaleEnglish:
		err = enTranslations.RegisterDefaultTranslations(v, translator)
	default:
		err = zhTranslations.RegisterDefaultTranslations(v, translator)
	}
	if err != nil {
		return nil, err
	}

	// label 优先，其次 json 名称
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := strings.TrimSpace(field.Tag.Get("label")); label != "" {
			return label
		}
		if name := jsonName(field); name != "" {
			return name
		}
		return field.Name
	})

	return &Validator{validate: v, translator: translator}, nil
}

// RegisterValidation 包装原生注册校验函数
func (my *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return my.validate.RegisterValidation(tag, fn)
}

// Struct 校验结构体，失败时返回 *ValidationError
func (my *Validator) Struct(target any) error {
	err := my.validate.Struct(target)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return &ValidationError{err: err}
	}

	lookup := jsonNames(target)
	fields := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		name := e.StructField()
		if alias, ok := lookup[name]; ok {
			name = alias
		}
		fields = append(fields, FieldError{Field: name, Message: e.Translate(my.translator)})
	}
	return &ValidationError{fields: fields, err: err}
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func jsonNames(payload any) map[string]string {
	typ := reflect.TypeOf(payload)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil
	}

	result := make(map[string]string, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := jsonName(field)
		if name == "" {
			name = strings.ToLower(field.Name[:1]) + field.Name[1:]
		}
		result[field.Name] = name
	}
	return result
}
