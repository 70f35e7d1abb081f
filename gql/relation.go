package gql

import (
	"context"
	"reflect"

	"github.com/graphql-go/graphql"
	"github.com/samber/lo"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// relationSource 关联另一个Loader，按层批量查询
type relationSource struct {
	target     *descriptor
	localField string
	farField   string
	many       bool
}

// HasMany 一对多关联，子表的 childField 保存父级 parentField 的值
func HasMany[C any](child *Loader[C], parentField, childField string) FieldOption {
	return withSource(&relationSource{target: child.d, localField: parentField, farField: childField, many: true})
}

// BelongsTo 多对一关联，foreignField 保存父级 parentField 的值，parentField 为空时使用主键
func BelongsTo[C any](parent *Loader[C], foreignField, parentField string) FieldOption {
	return withSource(&relationSource{target: parent.d, localField: foreignField, farField: parentField})
}

func (my *relationSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	d := my.target
	obj := r.object(d)

	local, ok := (&columnSource{goField: my.localField}).structField(f.owner.goType)
	if !ok {
		return nil, configError("Field `%s` of `%s` is not found.", my.localField, f.owner.label())
	}
	far, err := r.relationField(d, my.farField)
	if err != nil {
		return nil, err
	}
	column := clause.Column{Table: clause.CurrentTable, Name: far.DBName}
	farIndex := far.StructField.Index

	var (
		out  graphql.Output
		args graphql.FieldConfigArgument
	)
	switch {
	case !my.many:
		out = obj
	case f.connection:
		if args, err = r.listArgs(d, f); err != nil {
			return nil, err
		}
		args = pagingArgs(args)
		out = graphql.NewNonNull(r.connection(d))
	default:
		if args, err = r.listArgs(d, f); err != nil {
			return nil, err
		}
		out = graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(obj)))
	}

	return &graphql.Field{
		Type: out,
		Args: args,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			var w window
			if f.connection {
				var err error
				if w, err = r.window(p.Args); err != nil {
					return nil, err
				}
			}
			v, ok := structValue(p.Source)
			if !ok {
				return nil, nil
			}
			lv, err := v.FieldByIndexErr(local.Index)
			if err != nil {
				return my.empty(r, w, f), nil
			}
			key := keyOf(lv)
			if key == nil {
				return my.empty(r, w, f), nil
			}

			fetch := func(ctx context.Context, keys []interface{}) (map[interface{}][]interface{}, error) {
				q, err := r.query(ctx, d, f, p.Args)
				if err != nil {
					return nil, err
				}
				q = q.Where(clause.IN{Column: column, Values: keys})
				if q, err = r.sorted(ctx, d, q, p.Args); err != nil {
					return nil, err
				}
				rows, err := r.find(d, q)
				if err != nil {
					return nil, err
				}
				return lo.GroupBy(rows, func(row interface{}) interface{} {
					rv, _ := structValue(row)
					fv, err := rv.FieldByIndexErr(farIndex)
					if err != nil {
						return nil
					}
					return keyOf(fv)
				}), nil
			}
			wait := loadBatcher(p.Context, batchKey{field: f, args: fingerprint(p.Args)}, fetch).load(key)

			return func() (interface{}, error) {
				res := wait()
				if res.err != nil {
					return nil, res.err
				}
				switch {
				case !my.many:
					if len(res.value) == 0 {
						return nil, nil
					}
					return res.value[0], nil
				case f.connection:
					return r.memoryConnection(w, res.value), nil
				}
				if res.value == nil {
					return []interface{}{}, nil
				}
				return res.value, nil
			}, nil
		},
	}, nil
}

func (my *relationSource) empty(r *Registry, w window, f *Field) interface{} {
	switch {
	case !my.many:
		return nil
	case f.connection:
		return r.memoryConnection(w, nil)
	}
	return []interface{}{}
}

// relationField 关联目标上的列，为空时使用主键
func (my *Registry) relationField(d *descriptor, goField string) (*schema.Field, error) {
	if goField == "" {
		return my.identity(d)
	}
	return my.structField(d, goField)
}

// keyOf 规整关联键，使不同宽度的整数与指针可以互相匹配
func keyOf(v reflect.Value) interface{} {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.String:
		return v.String()
	}
	if !v.Type().Comparable() {
		return nil
	}
	return v.Interface()
}
