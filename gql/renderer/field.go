package renderer

import "strings"

// Field 表示GraphQL字段或输入字段
type Field struct {
	Name       string
	Type       string
	Comment    string
	Args       []Argument
	Indent     int
	Multiline  bool
	Deprecated string
}

// Argument 表示字段参数
type Argument struct {
	Name string
	Type string
}

// Option 配置字段的函数选项
type Option func(*Field)

// WithComment 添加注释，多行注释只保留第一行
func WithComment(comment string) Option {
	return func(f *Field) {
		comment, _, _ = strings.Cut(comment, "\n")
		f.Comment = strings.TrimSpace(comment)
	}
}

// WithIndent 设置缩进级别
func WithIndent(spaces int) Option {
	return func(f *Field) {
		f.Indent = spaces
	}
}

// WithArgs 添加参数
func WithArgs(args ...Argument) Option {
	return func(f *Field) {
		f.Args = append(f.Args, args...)
	}
}

// WithMultilineArgs 使用多行参数格式
func WithMultilineArgs() Option {
	return func(f *Field) {
		f.Multiline = true
	}
}

// WithDeprecated 标记字段已废弃
func WithDeprecated(reason string) Option {
	return func(f *Field) {
		f.Deprecated = reason
	}
}

// New 创建字段，默认缩进两个空格
func New(name string, typeRef string, options ...Option) *Field {
	f := &Field{Name: name, Type: typeRef, Indent: 2}

	for _, opt := range options {
		opt(f)
	}

	return f
}

// MakeField 直接生成字段定义行
func MakeField(name string, typeRef string, options ...Option) string {
	return New(name, typeRef, options...).String()
}

// String 构建字段定义字符串
func (f *Field) String() string {
	var sb strings.Builder
	sb.Grow(estimateSize(f))

	writeIndent(&sb, f.Indent)
	sb.WriteString(f.Name)

	if len(f.Args) > 0 {
		sb.WriteByte('(')
		if f.Multiline {
			sb.WriteByte('\n')
			for _, arg := range f.Args {
				writeIndent(&sb, f.Indent+2)
				writeArg(&sb, arg)
				sb.WriteByte('\n')
			}
			writeIndent(&sb, f.Indent)
		} else {
			for i, arg := range f.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				writeArg(&sb, arg)
			}
		}
		sb.WriteByte(')')
	}

	sb.WriteString(": ")
	sb.WriteString(f.Type)

	if f.Deprecated != "" {
		sb.WriteString(` @deprecated(reason: "`)
		sb.WriteString(strings.ReplaceAll(f.Deprecated, `"`, `\"`))
		sb.WriteString(`")`)
	}

	if f.Comment != "" {
		sb.WriteString("  # ")
		sb.WriteString(f.Comment)
	}

	return sb.String()
}

func writeArg(sb *strings.Builder, arg Argument) {
	sb.WriteString(arg.Name)
	sb.WriteString(": ")
	sb.WriteString(arg.Type)
}

func writeIndent(sb *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		sb.WriteByte(' ')
	}
}

// 预估字段字符串长度
func estimateSize(f *Field) int {
	size := f.Indent + len(f.Name) + len(f.Type) + 4
	for _, arg := range f.Args {
		size += len(arg.Name) + len(arg.Type) + f.Indent + 6
	}
	if f.Comment != "" {
		size += len(f.Comment) + 4
	}
	if f.Deprecated != "" {
		size += len(f.Deprecated) + 26
	}
	return size
}
