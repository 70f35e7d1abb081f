package gql

import (
	"context"
	"reflect"

	"gorm.io/gorm"
)

// Loader 在投影之上增加了数据来源
type Loader[T any] struct {
	Projection[T]
}

// NewLoader 创建Loader，类型名默认去掉名称中的 Loader 后缀
func NewLoader[T any](name string, configure func(l *Loader[T])) *Loader[T] {
	l := &Loader[T]{}
	l.d = newDescriptor(name, reflect.TypeOf((*T)(nil)).Elem())
	l.d.loader = &loaderSpec{}
	if configure != nil {
		l.d.configure = func() { configure(l) }
	}
	return l
}

// Name 显式指定GraphQL类型名
func (my *Loader[T]) Name(typeName string) *Loader[T] {
	my.d.typeName = typeName
	return my
}

// Query 设置基础查询，默认是 db.Model(new(T))
func (my *Loader[T]) Query(fn func(ctx context.Context, db *gorm.DB) *gorm.DB) *Loader[T] {
	my.d.loader.query = fn
	return my
}

// Security 设置安全过滤器，所有读取都会先经过它
func (my *Loader[T]) Security(fn func(ctx context.Context, q *gorm.DB) *gorm.DB) *Loader[T] {
	my.d.loader.security = fn
	return my
}

// ID 指定主键字段，默认使用gorm主键
func (my *Loader[T]) ID(goField string) *Loader[T] {
	my.d.loader.idField = goField
	return my
}

// Order 设置自然排序，字段名前加 - 表示降序
func (my *Loader[T]) Order(fields ...string) *Loader[T] {
	my.d.loader.order = fields
	return my
}

// Search 增加 search 参数
func (my *Loader[T]) Search(fn func(ctx context.Context, q *gorm.DB, term string) *gorm.DB) *Loader[T] {
	if my.d.loader.search != nil {
		my.d.fail(ErrSearchTwice)
		return my
	}
	my.d.loader.search = fn
	return my
}

// Filter 在 Input{T}Filter 中增加自定义过滤字段
func (my *Loader[T]) Filter(f *InlineFilter) *Loader[T] {
	for _, exist := range my.d.loader.filters {
		if exist.name == f.name {
			my.d.fail(configError("A field with the name `%s` is already registered.", f.name))
			return my
		}
	}
	my.d.loader.filters = append(my.d.loader.filters, f)
	return my
}

// IDGenerator 为新建实体生成主键
func (my *Loader[T]) IDGenerator(fn func() (any, error)) *Loader[T] {
	my.d.loader.idGen = fn
	return my
}

// AfterSave 保存完成后执行，返回的实体会在同一事务中继续保存
func (my *Loader[T]) AfterSave(fn func(ctx context.Context, tx *gorm.DB, saved []*T) ([]any, error)) *Loader[T] {
	my.d.loader.afterSave = func(ctx context.Context, tx *gorm.DB, saved []any) ([]any, error) {
		typed := make([]*T, 0, len(saved))
		for _, s := range saved {
			if e, ok := s.(*T); ok {
				typed = append(typed, e)
			}
		}
		return fn(ctx, tx, typed)
	}
	return my
}

// AllowDelete 允许通过 delete: true 删除实体
func (my *Loader[T]) AllowDelete() *Loader[T] {
	my.d.loader.allowDelete = true
	return my
}
