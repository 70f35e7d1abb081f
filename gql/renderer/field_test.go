package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeField(t *testing.T) {
	tests := []struct {
		name      string
		fieldName string
		typeRef   string
		options   []Option
		expected  string
	}{
		{
			name:      "基础字段",
			fieldName: "id",
			typeRef:   "ID!",
			expected:  "  id: ID!",
		},
		{
			name:      "带注释字段",
			fieldName: "name",
			typeRef:   "String",
			options:   []Option{WithComment("用户名\n第二行")},
			expected:  "  name: String  # 用户名",
		},
		{
			name:      "带参数字段",
			fieldName: "users",
			typeRef:   "[User!]",
			options: []Option{
				WithArgs(
					Argument{Name: "filter", Type: "UserFilter"},
					Argument{Name: "take", Type: "Int"},
				),
			},
			expected: "  users(filter: UserFilter, take: Int): [User!]",
		},
		{
			name:      "多行参数字段",
			fieldName: "comments",
			typeRef:   "CommentConnection!",
			options: []Option{
				WithMultilineArgs(),
				WithArgs(
					Argument{Name: "filter", Type: "InputCommentFilter"},
					Argument{Name: "sorting", Type: "[SortingInput!]"},
				),
			},
			expected: "  comments(\n    filter: InputCommentFilter\n    sorting: [SortingInput!]\n  ): CommentConnection!",
		},
		{
			name:      "自定义缩进",
			fieldName: "title",
			typeRef:   "String!",
			options:   []Option{WithIndent(4)},
			expected:  "    title: String!",
		},
		{
			name:      "废弃字段",
			fieldName: "age",
			typeRef:   "Int",
			options:   []Option{WithDeprecated(`use "birthday"`)},
			expected:  `  age: Int @deprecated(reason: "use \"birthday\"")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MakeField(tt.fieldName, tt.typeRef, tt.options...))
		})
	}
}

func TestNewIsolated(t *testing.T) {
	f := New("name", "String", WithComment("x"), WithArgs(Argument{Name: "a", Type: "Int"}), WithIndent(6))
	g := New("other", "Int")
	assert.Equal(t, "      name(a: Int): String  # x", f.String())
	assert.Equal(t, "  other: Int", g.String())
}
