package gql

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/iancoleman/strcase"
	"github.com/ichaly/fluentgql/utl"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// InlineFilter 出现在 Input{T}Filter 中的自定义过滤字段
type InlineFilter struct {
	name      string
	valueType reflect.Type
	apply     func(ctx context.Context, q *gorm.DB, value interface{}) (*gorm.DB, error)
}

// Inline 创建自定义过滤字段，通过 Loader.Filter 挂载
func Inline[V any](name string, fn func(ctx context.Context, q *gorm.DB, value V) *gorm.DB) *InlineFilter {
	vt := reflect.TypeFor[V]()
	return &InlineFilter{
		name:      strcase.ToLowerCamel(name),
		valueType: vt,
		apply: func(ctx context.Context, q *gorm.DB, value interface{}) (*gorm.DB, error) {
			v, err := convert(vt, value)
			if err != nil {
				return nil, badRequest("Invalid value of filter `%s`: %w", name, err)
			}
			return fn(ctx, q, v.Interface().(V)), nil
		},
	}
}

// CustomFilter 替代内联过滤的独立过滤类型，名称为 Input{Name}
type CustomFilter struct {
	name      string
	valueType reflect.Type
	apply     func(ctx context.Context, q *gorm.DB, value interface{}) (*gorm.DB, error)
}

// NewFilter 创建自定义过滤类型，通过 WithFilter 挂载到根字段
func NewFilter[F any](name string, fn func(ctx context.Context, q *gorm.DB, value F) *gorm.DB) *CustomFilter {
	vt := reflect.TypeFor[F]()
	return &CustomFilter{
		name:      strcase.ToCamel(name),
		valueType: vt,
		apply: func(ctx context.Context, q *gorm.DB, value interface{}) (*gorm.DB, error) {
			v, err := convert(vt, value)
			if err != nil {
				return nil, badRequest("Invalid value of filter `%s`: %w", name, err)
			}
			return fn(ctx, q, v.Interface().(F)), nil
		},
	}
}

// WithFilter 为列表字段挂载自定义过滤类型
func WithFilter(c *CustomFilter) FieldOption {
	return func(f *Field) {
		if f.custom != nil {
			f.owner.fail(ErrFilterTwice)
			return
		}
		f.custom = c
	}
}

type operator struct {
	name string
	desc string
	list bool
}

var (
	opIsNull     = operator{name: OP_IS_NULL, desc: descIsNull}
	opEq         = operator{name: OP_EQ, desc: descEqual}
	opNeq        = operator{name: OP_NEQ, desc: descNotEqual}
	opIn         = operator{name: OP_IN, desc: descIn, list: true}
	opNin        = operator{name: OP_NIN, desc: descNotIn, list: true}
	opGt         = operator{name: OP_GT, desc: descGreater}
	opGte        = operator{name: OP_GTE, desc: descGreaterEq}
	opLt         = operator{name: OP_LT, desc: descLess}
	opLte        = operator{name: OP_LTE, desc: descLessEq}
	opContains   = operator{name: OP_CONTAINS, desc: descContains}
	opStartsWith = operator{name: OP_STARTS_WITH, desc: descStartsWith}
	opEndsWith   = operator{name: OP_ENDS_WITH, desc: descEndsWith}
)

// 每组标量支持的操作符
var operators = map[string][]operator{
	TYPE_ID_FILTER:       {opIsNull, opEq, opNeq, opIn, opNin},
	TYPE_BOOLEAN_FILTER:  {opIsNull, opEq, opNeq},
	TYPE_INT_FILTER:      {opIsNull, opEq, opNeq, opIn, opNin, opGt, opGte, opLt, opLte},
	TYPE_LONG_FILTER:     {opIsNull, opEq, opNeq, opIn, opNin, opGt, opGte, opLt, opLte},
	TYPE_FLOAT_FILTER:    {opIsNull, opEq, opNeq, opIn, opNin, opGt, opGte, opLt, opLte},
	TYPE_DATETIME_FILTER: {opIsNull, opEq, opNeq, opIn, opNin, opGt, opGte, opLt, opLte},
	TYPE_STRING_FILTER:   {opIsNull, opEq, opNeq, opIn, opNin, opGt, opGte, opLt, opLte, opContains, opStartsWith, opEndsWith},
}

// scalarFilter 返回标量的操作符输入类型
func (my *Registry) scalarFilter(s *graphql.Scalar) *graphql.InputObject {
	name := filterOf(s)
	if in, ok := my.filters[name]; ok {
		return in
	}
	fields := graphql.InputObjectConfigFieldMap{}
	for _, op := range operators[name] {
		var t graphql.Input = s
		switch {
		case op.name == OP_IS_NULL:
			t = graphql.Boolean
		case op.list:
			t = graphql.NewList(graphql.NewNonNull(s))
		}
		fields[op.name] = &graphql.InputObjectFieldConfig{Type: t, Description: op.desc}
	}
	in := graphql.NewInputObject(graphql.InputObjectConfig{Name: name, Fields: fields})
	my.filters[name] = in
	return in
}

// filter 返回 Input{T}Filter，没有可过滤字段时返回nil
func (my *Registry) filter(d *descriptor) *graphql.InputObject {
	key := typeKey{d, kindFilter}
	if t, ok := my.types[key]; ok {
		return t.(*graphql.InputObject)
	}
	my.fail(d.ensure())
	filterable := lo.Filter(d.fields, func(f *Field, _ int) bool { return f.filterable })
	var inlines []*InlineFilter
	if d.loader != nil {
		inlines = d.loader.filters
	}
	if len(filterable) == 0 && len(inlines) == 0 {
		return nil
	}

	name := my.uniqueName(PREFIX_INPUT + d.typeName + SUFFIX_FILTER)
	var self *graphql.InputObject
	self = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: name,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{
				AND: &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(self))},
				OR:  &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(self))},
				NOT: &graphql.InputObjectFieldConfig{Type: self},
			}
			for _, f := range filterable {
				sf, err := my.filterColumn(d, f)
				if err != nil {
					my.fail(err)
					continue
				}
				fields[f.name] = &graphql.InputObjectFieldConfig{Type: my.scalarFilter(scalarOf(sf.FieldType)), Description: f.description}
			}
			for _, c := range inlines {
				if _, ok := fields[c.name]; ok {
					my.fail(configError("A field with the name `%s` is already registered.", c.name))
					continue
				}
				t, err := my.inputOf(c.valueType, PREFIX_INPUT+strcase.ToCamel(c.name))
				if err != nil {
					my.fail(err)
					continue
				}
				fields[c.name] = &graphql.InputObjectFieldConfig{Type: t}
			}
			return fields
		}),
	})
	my.types[key] = self
	return self
}

// customFilter 返回 Input{Name}
func (my *Registry) customFilter(c *CustomFilter) (graphql.Input, error) {
	return my.inputOf(c.valueType, PREFIX_INPUT+c.name)
}

// filterColumn 可过滤字段必须是标量列
func (my *Registry) filterColumn(d *descriptor, f *Field) (*schema.Field, error) {
	col, ok := f.source.(*columnSource)
	if !ok {
		return nil, configError("Field `%s` of `%s` cannot be filtered.", f.name, d.label())
	}
	sf, err := my.structField(d, col.goField)
	if err != nil {
		return nil, err
	}
	if s := scalarOf(sf.FieldType); s == nil || filterOf(s) == "" || s == JSON {
		return nil, configError("Field `%s` of `%s` cannot be filtered.", f.name, d.label())
	}
	return sf, nil
}

// applyFilter 把 filter 参数编译为where条件
func (my *Registry) applyFilter(ctx context.Context, d *descriptor, f *Field, q *gorm.DB, value interface{}) (*gorm.DB, error) {
	if value == nil {
		return q, nil
	}
	if f != nil && f.custom != nil {
		return f.custom.apply(ctx, q, value)
	}
	input, ok := value.(map[string]interface{})
	if !ok {
		return nil, badRequest("Invalid filter of `%s`.", d.typeName)
	}
	exprs, err := my.compile(ctx, d, input)
	if err != nil {
		return nil, err
	}
	if len(exprs) == 0 {
		return q, nil
	}
	return q.Clauses(clause.Where{Exprs: exprs}), nil
}

func (my *Registry) compile(ctx context.Context, d *descriptor, input map[string]interface{}) ([]clause.Expression, error) {
	var exprs []clause.Expression
	for _, key := range utl.SortKeys(input) {
		value := input[key]
		if value == nil {
			continue
		}
		switch key {
		case AND, OR:
			list, _ := value.([]interface{})
			var parts []clause.Expression
			for _, item := range list {
				m, _ := item.(map[string]interface{})
				sub, err := my.compile(ctx, d, m)
				if err != nil {
					return nil, err
				}
				if e := and(sub); e != nil {
					parts = append(parts, e)
				}
			}
			if len(parts) == 0 {
				continue
			}
			if key == AND || len(parts) == 1 {
				exprs = append(exprs, and(parts))
			} else {
				exprs = append(exprs, clause.Or(parts...))
			}
		case NOT:
			m, _ := value.(map[string]interface{})
			sub, err := my.compile(ctx, d, m)
			if err != nil {
				return nil, err
			}
			if e := and(sub); e != nil {
				exprs = append(exprs, clause.Not(e))
			}
		default:
			sub, err := my.compileField(ctx, d, key, value)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, sub...)
		}
	}
	return exprs, nil
}

func (my *Registry) compileField(ctx context.Context, d *descriptor, key string, value interface{}) ([]clause.Expression, error) {
	if d.loader != nil {
		for _, c := range d.loader.filters {
			if c.name == key {
				return my.inlineExprs(ctx, d, c, value)
			}
		}
	}
	f, ok := d.lookup(key)
	if !ok || !f.filterable {
		return nil, badRequest("Field `%s` of `%s` cannot be filtered.", key, d.typeName)
	}
	sf, err := my.filterColumn(d, f)
	if err != nil {
		return nil, err
	}
	ops, _ := value.(map[string]interface{})
	column := clause.Column{Table: clause.CurrentTable, Name: sf.DBName}
	var exprs []clause.Expression
	for _, op := range utl.SortKeys(ops) {
		e, err := operate(column, sf.FieldType, op, ops[op])
		if err != nil {
			return nil, err
		}
		if e != nil {
			exprs = append(exprs, e)
		}
	}
	return exprs, nil
}

// inlineExprs 在独立会话上执行自定义过滤，取出生成的where条件
func (my *Registry) inlineExprs(ctx context.Context, d *descriptor, c *InlineFilter, value interface{}) ([]clause.Expression, error) {
	sub := my.db.Session(&gorm.Session{NewDB: true, Context: ctx}).Model(d.newModel())
	out, err := c.apply(ctx, sub, value)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Statement == nil {
		return nil, nil
	}
	if out.Error != nil {
		return nil, out.Error
	}
	if where, ok := out.Statement.Clauses["WHERE"].Expression.(clause.Where); ok {
		return where.Exprs, nil
	}
	return nil, nil
}

func operate(column clause.Column, t reflect.Type, op string, raw interface{}) (clause.Expression, error) {
	if raw == nil {
		return nil, nil
	}
	if op == OP_IS_NULL {
		if isNull, _ := raw.(bool); isNull {
			return clause.Eq{Column: column, Value: nil}, nil
		}
		return clause.Neq{Column: column, Value: nil}, nil
	}
	if op == OP_IN || op == OP_NIN {
		list, _ := raw.([]interface{})
		values := make([]interface{}, 0, len(list))
		for _, item := range list {
			v, err := columnValue(t, item)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			if op == OP_IN {
				return clause.Expr{SQL: "1 = 0"}, nil
			}
			return nil, nil
		}
		if op == OP_IN {
			return clause.IN{Column: column, Values: values}, nil
		}
		return clause.Not(clause.IN{Column: column, Values: values}), nil
	}

	switch op {
	case OP_CONTAINS, OP_STARTS_WITH, OP_ENDS_WITH:
		term := escapeLike(fmt.Sprint(raw))
		switch op {
		case OP_CONTAINS:
			term = "%" + term + "%"
		case OP_STARTS_WITH:
			term = term + "%"
		default:
			term = "%" + term
		}
		return clause.Expr{SQL: "? LIKE ? ESCAPE '!'", Vars: []interface{}{column, term}}, nil
	}

	v, err := columnValue(t, raw)
	if err != nil {
		return nil, err
	}
	switch op {
	case OP_EQ:
		return clause.Eq{Column: column, Value: v}, nil
	case OP_NEQ:
		return clause.Neq{Column: column, Value: v}, nil
	case OP_GT:
		return clause.Gt{Column: column, Value: v}, nil
	case OP_GTE:
		return clause.Gte{Column: column, Value: v}, nil
	case OP_LT:
		return clause.Lt{Column: column, Value: v}, nil
	case OP_LTE:
		return clause.Lte{Column: column, Value: v}, nil
	}
	return nil, badRequest("Unknown filter operator `%s`.", op)
}

// columnValue 把输入值转换为列的Go类型
func columnValue(t reflect.Type, raw interface{}) (interface{}, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	v, err := convert(t, raw)
	if err != nil {
		return nil, badRequest("Invalid value `%v`: %w", raw, err)
	}
	return v.Interface(), nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func and(exprs []clause.Expression) clause.Expression {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return clause.And(exprs...)
}
