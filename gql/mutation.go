package gql

import (
	"context"
	"reflect"

	"github.com/graphql-go/graphql"
	"github.com/iancoleman/strcase"
	"github.com/ichaly/fluentgql/utl"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type txKey struct{}

func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Tx 返回变更字段所在的事务
func Tx(ctx context.Context) (*gorm.DB, error) {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx, nil
	}
	return nil, ErrNoTransaction
}

type filteredKey struct{}

// Filtered 返回带 FilterArg 的变更字段在事务中的查询，已应用安全过滤与 filter 参数
func Filtered(ctx context.Context) (*gorm.DB, error) {
	if q, ok := ctx.Value(filteredKey{}).(*gorm.DB); ok && q != nil {
		return q, nil
	}
	return nil, ErrNoFilter
}

type mutateOptions struct {
	skipAdd  bool
	skipSave bool
	filter   Describer
}

// MutateOption 变更字段选项
type MutateOption func(*mutateOptions)

// SkipAdd 不保存返回值中的新实体
func SkipAdd() MutateOption {
	return func(o *mutateOptions) {
		o.skipAdd = true
	}
}

// SkipSave 不保存返回值
func SkipSave() MutateOption {
	return func(o *mutateOptions) {
		o.skipSave = true
	}
}

// FilterArg 增加 filter 参数，类型为Loader的 Input{T}Filter，函数内通过 Filtered 取得查询
func FilterArg(l Describer) MutateOption {
	return func(o *mutateOptions) {
		o.filter = l
	}
}

type mutateSource struct {
	argType   reflect.Type
	valueType reflect.Type
	options   mutateOptions
	call      func(ctx context.Context, args interface{}) (interface{}, error)
}

// Mutate 在事务中执行的变更字段，参数 payload 的类型为 Input{Field}Payload
func Mutate[A, V any](fn func(ctx context.Context, args A) (V, error), opts ...MutateOption) FieldOption {
	s := &mutateSource{
		argType:   reflect.TypeFor[A](),
		valueType: reflect.TypeFor[V](),
		call: func(ctx context.Context, args interface{}) (interface{}, error) {
			return fn(ctx, args.(A))
		},
	}
	for _, o := range opts {
		o(&s.options)
	}
	return withSource(s)
}

func (my *mutateSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	submitted := r.submitted(my.valueType)
	var out graphql.Output
	if submitted {
		obj, err := r.submitOutput()
		if err != nil {
			return nil, err
		}
		out = graphql.NewNonNull(obj)
	} else {
		t, err := r.outputOf(f, my.valueType)
		if err != nil {
			return nil, err
		}
		out = t
	}
	args := graphql.FieldConfigArgument{}
	if arg := r.payloadArg(f, my.argType); arg != nil {
		args[PAYLOAD] = arg
	}
	var filter *descriptor
	if my.options.filter != nil {
		filter = my.options.filter.describe()
		if filter.loader == nil {
			return nil, configError("Filter argument of `%s` requires a loader.", f.name)
		}
		in := r.filter(filter)
		if in == nil {
			return nil, configError("Type `%s` has no filterable field.", filter.typeName)
		}
		args[FILTER] = &graphql.ArgumentConfig{Type: in}
	}
	return &graphql.Field{
		Type: out,
		Args: args,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			a, err := payloadOf(f, my.argType, p.Args)
			if err != nil {
				return nil, err
			}
			ctx, span := startSpan(p.Context, "gql.mutate", attribute.String("gql.field", f.name))
			var result interface{}
			err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				ctx := withTx(ctx, tx)
				if filter != nil {
					q, err := filter.base(ctx, tx)
					if err != nil {
						return err
					}
					if q, err = r.applyFilter(ctx, filter, nil, q, p.Args[FILTER]); err != nil {
						return err
					}
					ctx = context.WithValue(ctx, filteredKey{}, q)
				}
				v, err := my.call(ctx, a)
				if err != nil {
					return err
				}
				result = v
				if !my.options.skipSave {
					if err := r.persist(ctx, tx, v, my.options.skipAdd); err != nil {
						return err
					}
				}
				if submitted {
					result, err = r.submitResults(ctx, v)
				}
				return err
			})
			endSpan(span, err)
			if err != nil {
				return nil, err
			}
			if submitted {
				return result, nil
			}
			return output(reflect.ValueOf(result)), nil
		},
	}, nil
}

// payloadArg 结构体参数作为 payload: Input{Field}Payload!，没有导出字段时返回nil
func (my *Registry) payloadArg(f *Field, t reflect.Type) *graphql.ArgumentConfig {
	if t.Kind() != reflect.Struct || len(exportedFields(t)) == 0 {
		return nil
	}
	name := my.uniqueName(PREFIX_INPUT + strcase.ToCamel(f.name) + SUFFIX_PAYLOAD)
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(my.newInput(name, t))}
}

func payloadOf(f *Field, t reflect.Type, args map[string]interface{}) (interface{}, error) {
	a := reflect.New(t)
	if payload := args[PAYLOAD]; payload != nil {
		if err := utl.Convert(payload, a.Interface()); err != nil {
			return nil, badRequest("Invalid payload of `%s`: %w", f.name, err)
		}
	}
	return a.Elem().Interface(), nil
}

// submitted 返回值是已加入批量提交的实体列表时，输出与 submit 相同的 SubmitOutput
func (my *Registry) submitted(t reflect.Type) bool {
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	return my.submitEntryOf(t.Elem()) != nil
}

func (my *Registry) submitEntryOf(t reflect.Type) *submitEntry {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for _, e := range my.submits {
		if e.d.goType == t {
			return e
		}
	}
	return nil
}

// submitResults 按提交字段分组返回值，主键取保存后的值
func (my *Registry) submitResults(ctx context.Context, value interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(my.submits))
	for _, e := range my.submits {
		out[e.name] = []interface{}{}
	}
	for _, entity := range entities(value) {
		e := my.submitEntryOf(reflect.TypeOf(entity))
		if e == nil {
			continue
		}
		id, err := my.identity(e.d)
		if err != nil {
			return nil, err
		}
		v, _ := id.ValueOf(ctx, reflect.Indirect(reflect.ValueOf(entity)))
		out[e.name] = append(out[e.name].([]interface{}), &submitResult{id: output(reflect.ValueOf(v)), payload: entity})
	}
	return out, nil
}

// persist 保存变更函数返回的实体，支持指针与指针切片
func (my *Registry) persist(ctx context.Context, tx *gorm.DB, value interface{}, skipAdd bool) error {
	for _, e := range entities(value) {
		if skipAdd && my.isNew(ctx, e) {
			continue
		}
		if err := tx.Save(e).Error; err != nil {
			return err
		}
	}
	return nil
}

func entities(value interface{}) []interface{} {
	v := reflect.ValueOf(value)
	switch {
	case !v.IsValid():
		return nil
	case v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Kind() == reflect.Struct && !isScalarStruct(v.Elem().Type()):
		return []interface{}{value}
	case v.Kind() == reflect.Slice:
		var out []interface{}
		for i := 0; i < v.Len(); i++ {
			out = append(out, entities(v.Index(i).Interface())...)
		}
		return out
	}
	return nil
}

// isNew 主键为零值的实体视为新建
func (my *Registry) isNew(ctx context.Context, entity interface{}) bool {
	sch, err := schema.Parse(entity, &my.schemas, my.namer)
	if err != nil || sch.PrioritizedPrimaryField == nil {
		return true
	}
	_, zero := sch.PrioritizedPrimaryField.ValueOf(ctx, reflect.Indirect(reflect.ValueOf(entity)))
	return zero
}
