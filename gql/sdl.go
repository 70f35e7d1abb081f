package gql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/ichaly/fluentgql/gql/renderer"
	"github.com/ichaly/fluentgql/utl"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// 标准SDL内置的标量不需要声明
var builtinScalars = map[string]bool{
	SCALAR_ID:      true,
	SCALAR_INT:     true,
	SCALAR_FLOAT:   true,
	SCALAR_STRING:  true,
	SCALAR_BOOLEAN: true,
}

// SDL 从运行时类型生成SDL，并用gqlparser校验
func (my *Schema) SDL() (string, error) {
	var sb strings.Builder

	sb.WriteString("schema {\n")
	sb.WriteString(renderer.MakeField("query", my.schema.QueryType().Name()))
	sb.WriteByte('\n')
	if m := my.schema.MutationType(); m != nil {
		sb.WriteString(renderer.MakeField("mutation", m.Name()))
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")

	types := my.schema.TypeMap()
	for _, name := range utl.SortKeys(types) {
		if strings.HasPrefix(name, "__") || builtinScalars[name] {
			continue
		}
		sb.WriteByte('\n')
		writeType(&sb, types[name])
	}

	sdl := sb.String()
	if _, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl}); err != nil {
		return "", fmt.Errorf("invalid sdl: %w", err)
	}
	return sdl, nil
}

// Save 把SDL写入文件
func (my *Schema) Save(path string) error {
	sdl, err := my.SDL()
	if err != nil {
		return err
	}
	return utl.WriteFile(strings.NewReader(sdl), path)
}

func writeType(sb *strings.Builder, t graphql.Type) {
	writeComment(sb, t.Description())
	switch v := t.(type) {
	case *graphql.Scalar:
		fmt.Fprintf(sb, "scalar %s\n", v.Name())
	case *graphql.Enum:
		fmt.Fprintf(sb, "enum %s {\n", v.Name())
		values := v.Values()
		sort.Slice(values, func(i, j int) bool { return values[i].Name < values[j].Name })
		for _, value := range values {
			sb.WriteString("  ")
			sb.WriteString(value.Name)
			sb.WriteByte('\n')
		}
		sb.WriteString("}\n")
	case *graphql.Object:
		fmt.Fprintf(sb, "type %s {\n", v.Name())
		fields := v.Fields()
		for _, name := range utl.SortKeys(fields) {
			sb.WriteString(outputField(fields[name]))
			sb.WriteByte('\n')
		}
		sb.WriteString("}\n")
	case *graphql.InputObject:
		fmt.Fprintf(sb, "input %s {\n", v.Name())
		fields := v.Fields()
		for _, name := range utl.SortKeys(fields) {
			f := fields[name]
			sb.WriteString(renderer.MakeField(f.Name(), typeRef(f.Type).String(), renderer.WithComment(f.Description())))
			sb.WriteByte('\n')
		}
		sb.WriteString("}\n")
	}
}

func outputField(f *graphql.FieldDefinition) string {
	args := make([]renderer.Argument, 0, len(f.Args))
	for _, a := range f.Args {
		args = append(args, renderer.Argument{Name: a.Name(), Type: typeRef(a.Type).String()})
	}
	sort.Slice(args, func(i, j int) bool { return args[i].Name < args[j].Name })

	opts := []renderer.Option{renderer.WithComment(f.Description)}
	if len(args) > 0 {
		opts = append(opts, renderer.WithArgs(args...))
	}
	if len(args) > 3 {
		opts = append(opts, renderer.WithMultilineArgs())
	}
	if f.DeprecationReason != "" {
		opts = append(opts, renderer.WithDeprecated(f.DeprecationReason))
	}
	return renderer.MakeField(f.Name, typeRef(f.Type).String(), opts...)
}

func writeComment(sb *strings.Builder, text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			sb.WriteString("# ")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
}

// typeRef 把运行时类型转换为gqlparser的类型引用
func typeRef(t graphql.Type) *ast.Type {
	switch v := t.(type) {
	case *graphql.NonNull:
		inner := typeRef(v.OfType)
		inner.NonNull = true
		return inner
	case *graphql.List:
		return ast.ListType(typeRef(v.OfType), nil)
	}
	return ast.NamedType(t.Name(), nil)
}
