package std

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Age   int    `json:"age" validate:"gte=0,lte=150"`
}

func TestValidator(t *testing.T) {
	v, err := NewValidator(LocaleEnglish)
	require.NoError(t, err)

	cases := []struct {
		name   string
		in     signup
		fields []string
	}{
		{name: "合法", in: signup{Name: "tom", Age: 3}},
		{name: "缺少名称", in: signup{Age: 3}, fields: []string{"name"}},
		{name: "多个错误", in: signup{Email: "x", Age: 200}, fields: []string{"name", "email", "age"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := v.Struct(&c.in)
			if len(c.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			names := make([]string, 0, len(ve.Fields()))
			for _, f := range ve.Fields() {
				names = append(names, f.Field)
				assert.NotEmpty(t, f.Message)
			}
			assert.Equal(t, c.fields, names)
			assert.Equal(t, "VALIDATION", ve.Extensions()["code"])
		})
	}
}

func TestValidatorChinese(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.Struct(&signup{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name为必填字段")
}
