package gql

import (
	"reflect"
)

// Projection 描述结构体 T 的一个只读形状
type Projection[T any] struct {
	d *descriptor
}

// NewProjection 创建投影，configure 在首次使用时才会执行
func NewProjection[T any](name string, configure func(p *Projection[T])) *Projection[T] {
	p := &Projection[T]{d: newDescriptor(name, reflect.TypeOf((*T)(nil)).Elem())}
	if configure != nil {
		p.d.configure = func() { configure(p) }
	}
	return p
}

func (my *Projection[T]) describe() *descriptor {
	return my.d
}

// Field 声明字段，默认读取同名的导出字段
func (my *Projection[T]) Field(name string, opts ...FieldOption) *Field {
	return my.d.field(name, opts)
}

// TypeName 返回生成的GraphQL类型名
func (my *Projection[T]) TypeName() string {
	_ = my.d.ensure()
	return my.d.typeName
}
