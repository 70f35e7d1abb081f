package gql

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/graphql-go/graphql"
)

// columnSource 读取结构体上的导出字段
type columnSource struct {
	goField string
}

// Column 指定读取的Go字段名，默认为字段名的驼峰形式
func Column(goField string) FieldOption {
	return withSource(&columnSource{goField: goField})
}

func (my *columnSource) structField(t reflect.Type) (reflect.StructField, bool) {
	sf, ok := t.FieldByName(my.goField)
	if !ok {
		sf, ok = t.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, my.goField)
		})
	}
	return sf, ok && sf.IsExported()
}

func (my *columnSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	sf, ok := my.structField(f.owner.goType)
	if !ok {
		return nil, configError("Field `%s` must have resolver.", f.name)
	}
	out, err := r.outputOf(f, sf.Type)
	if err != nil {
		return nil, err
	}
	index := sf.Index
	return &graphql.Field{
		Type: out,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			v, ok := structValue(p.Source)
			if !ok {
				return nil, nil
			}
			fv, err := v.FieldByIndexErr(index)
			if err != nil {
				return nil, nil
			}
			return output(fv), nil
		},
	}, nil
}

// funcSource 由用户函数计算字段值
type funcSource struct {
	valueType reflect.Type
	async     bool
	call      func(ctx context.Context, source interface{}) (interface{}, error)
}

func (my *funcSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	out, err := r.outputOf(f, my.valueType)
	if err != nil {
		return nil, err
	}
	return &graphql.Field{
		Type: out,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			if !my.async {
				v, err := my.call(p.Context, p.Source)
				if err != nil {
					return nil, err
				}
				return output(reflect.ValueOf(v)), nil
			}
			done := make(chan asyncResult, 1)
			go func() {
				defer func() {
					if e := recover(); e != nil {
						done <- asyncResult{err: fmt.Errorf("resolver of `%s` panicked: %v", f.name, e)}
					}
				}()
				v, err := my.call(p.Context, p.Source)
				done <- asyncResult{value: v, err: err}
			}()
			return func() (interface{}, error) {
				res := <-done
				if res.err != nil {
					return nil, res.err
				}
				return output(reflect.ValueOf(res.value)), nil
			}, nil
		},
	}, nil
}

type asyncResult struct {
	value interface{}
	err   error
}

// Resolve 同步计算字段值
func Resolve[T, V any](fn func(ctx context.Context, source *T) (V, error)) FieldOption {
	return withSource(&funcSource{
		valueType: reflect.TypeFor[V](),
		call: func(ctx context.Context, source interface{}) (interface{}, error) {
			s, err := sourceOf[T](source)
			if err != nil {
				return nil, err
			}
			return fn(ctx, s)
		},
	})
}

// ResolveAsync 在独立的goroutine中计算字段值
func ResolveAsync[T, V any](fn func(ctx context.Context, source *T) (V, error)) FieldOption {
	return withSource(&funcSource{
		valueType: reflect.TypeFor[V](),
		async:     true,
		call: func(ctx context.Context, source interface{}) (interface{}, error) {
			s, err := sourceOf[T](source)
			if err != nil {
				return nil, err
			}
			return fn(ctx, s)
		},
	})
}

// sourceOf 把父级对象断言为 *T，根字段没有父级对象时返回零值
func sourceOf[T any](source interface{}) (*T, error) {
	switch s := source.(type) {
	case *T:
		return s, nil
	case T:
		return &s, nil
	case nil, map[string]interface{}:
		return new(T), nil
	}
	return nil, newError(CodeInternal, "Source `%T` is not `%s`.", source, reflect.TypeFor[T]())
}
