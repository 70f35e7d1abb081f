package gql

import (
	"context"
	"reflect"

	"github.com/graphql-go/graphql"
	"github.com/iancoleman/strcase"
	"github.com/ichaly/fluentgql/utl"
	"gorm.io/gorm/clause"
)

// Root 查询或变更的根类型
type Root struct {
	d       *descriptor
	submits []*submitEntry
}

func newRoot(typeName string) *Root {
	d := newDescriptor(typeName, reflect.TypeFor[struct{}]())
	d.typeName = typeName
	return &Root{d: d}
}

func loaderOf(r *Root, l Describer, name string) *descriptor {
	d := l.describe()
	if d.loader == nil {
		r.d.fail(configError("Field `%s` requires a loader.", name))
	}
	return d
}

// Connection 分页查询字段
func (my *Root) Connection(l Describer, name string, opts ...FieldOption) *Field {
	d := loaderOf(my, l, name)
	return my.d.field(name, append([]FieldOption{withSource(&connectionSource{d: d})}, opts...))
}

// List 列表查询字段，使用 take 与 skip 分页
func (my *Root) List(l Describer, name string, opts ...FieldOption) *Field {
	d := loaderOf(my, l, name)
	return my.d.field(name, append([]FieldOption{withSource(&listSource{d: d})}, opts...))
}

// ByID 按主键查询单个实体
func (my *Root) ByID(l Describer, name string, opts ...FieldOption) *Field {
	d := loaderOf(my, l, name)
	return my.d.field(name, append([]FieldOption{withSource(&byIDSource{d: d})}, opts...))
}

// Field 自定义根字段
func (my *Root) Field(name string, opts ...FieldOption) *Field {
	return my.d.field(name, opts)
}

type listSource struct {
	d *descriptor
}

func (my *listSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	d := my.d
	obj := r.object(d)
	args, err := r.listArgs(d, f)
	if err != nil {
		return nil, err
	}
	args[TAKE] = &graphql.ArgumentConfig{Type: graphql.Int}
	args[SKIP] = &graphql.ArgumentConfig{Type: graphql.Int}
	return &graphql.Field{
		Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(obj))),
		Args: args,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			take, skip := r.cfg.DefaultLimit, 0
			if v, ok := p.Args[TAKE].(int); ok {
				if v < 0 {
					return nil, badRequest("Argument `%s` must not be negative.", TAKE)
				}
				take = min(v, r.cfg.MaxLimit)
			}
			if v, ok := p.Args[SKIP].(int); ok {
				if v < 0 {
					return nil, badRequest("Argument `%s` must not be negative.", SKIP)
				}
				skip = v
			}
			q, err := r.query(p.Context, d, f, p.Args)
			if err != nil {
				return nil, err
			}
			if q, err = r.sorted(p.Context, d, q, p.Args); err != nil {
				return nil, err
			}
			step("page", d)
			return r.find(d, q.Offset(skip).Limit(take))
		},
	}, nil
}

type byIDSource struct {
	d *descriptor
}

func (my *byIDSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	d := my.d
	obj := r.object(d)
	id, err := r.identity(d)
	if err != nil {
		return nil, err
	}
	return &graphql.Field{
		Type: obj,
		Args: graphql.FieldConfigArgument{
			ID: &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			v, err := columnValue(id.FieldType, p.Args[ID])
			if err != nil {
				return nil, err
			}
			q, err := d.base(p.Context, r.db)
			if err != nil {
				return nil, err
			}
			step("security", d)
			rows, err := r.find(d, q.Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: id.DBName}, Value: v}).Limit(1))
			if err != nil || len(rows) == 0 {
				return nil, err
			}
			return rows[0], nil
		},
	}, nil
}

// argsSource 结构体 A 的导出字段作为参数
type argsSource struct {
	argType   reflect.Type
	valueType reflect.Type
	payload   bool
	call      func(ctx context.Context, args interface{}) (interface{}, error)
}

// Args 带参数的自定义字段，A 的导出字段成为参数
func Args[A, V any](fn func(ctx context.Context, args A) (V, error)) FieldOption {
	return withSource(&argsSource{
		argType:   reflect.TypeFor[A](),
		valueType: reflect.TypeFor[V](),
		call: func(ctx context.Context, args interface{}) (interface{}, error) {
			return fn(ctx, args.(A))
		},
	})
}

// Payload 带参数的自定义字段，参数整体作为 payload: Input{Field}Payload!
func Payload[A, V any](fn func(ctx context.Context, args A) (V, error)) FieldOption {
	return withSource(&argsSource{
		argType:   reflect.TypeFor[A](),
		valueType: reflect.TypeFor[V](),
		payload:   true,
		call: func(ctx context.Context, args interface{}) (interface{}, error) {
			return fn(ctx, args.(A))
		},
	})
}

func (my *argsSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	out, err := r.outputOf(f, my.valueType)
	if err != nil {
		return nil, err
	}
	if my.payload {
		args := graphql.FieldConfigArgument{}
		if arg := r.payloadArg(f, my.argType); arg != nil {
			args[PAYLOAD] = arg
		}
		return &graphql.Field{
			Type: out,
			Args: args,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				a, err := payloadOf(f, my.argType, p.Args)
				if err != nil {
					return nil, err
				}
				v, err := my.call(p.Context, a)
				if err != nil {
					return nil, err
				}
				return output(reflect.ValueOf(v)), nil
			},
		}, nil
	}
	args := graphql.FieldConfigArgument{}
	if my.argType.Kind() == reflect.Struct {
		for _, sf := range exportedFields(my.argType) {
			t, err := r.inputOf(sf.Type, strcase.ToCamel(f.name)+sf.Name)
			if err != nil {
				return nil, err
			}
			args[jsonFieldName(sf)] = &graphql.ArgumentConfig{Type: t}
		}
	}
	return &graphql.Field{
		Type: out,
		Args: args,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			a := reflect.New(my.argType)
			if len(p.Args) > 0 {
				if err := utl.Convert(p.Args, a.Interface()); err != nil {
					return nil, badRequest("Invalid arguments of `%s`: %w", f.name, err)
				}
			}
			v, err := my.call(p.Context, a.Elem().Interface())
			if err != nil {
				return nil, err
			}
			return output(reflect.ValueOf(v)), nil
		},
	}, nil
}
