package gql

import (
	"context"
	"fmt"
	"reflect"

	"github.com/graphql-go/graphql"
	"gorm.io/gorm"
)

// Field 投影上的一个字段
type Field struct {
	name   string
	raw    string
	owner  *descriptor
	source FieldSource

	output     Describer
	shape      *descriptor
	connection bool
	custom     *CustomFilter

	description string
	deprecated  string

	filterable bool
	sortable   bool
	sortBy     func(ctx context.Context, q *gorm.DB, dir SortDirection) *gorm.DB

	editable   bool
	editRules  []editRule
	batchRules []*batchRule
	mandatory  bool
	hasDefault bool
	defaults   func(ctx context.Context, entity any) (any, error)
	onWrite    func(ctx context.Context, entity any, value any) error
	writeType  reflect.Type
	references Describer
}

// FieldSource 字段的取值来源，每个字段只有一个
type FieldSource interface {
	bind(r *Registry, f *Field) (*graphql.Field, error)
}

// FieldOption 字段选项
type FieldOption func(*Field)

// Name 返回GraphQL字段名
func (my *Field) Name() string {
	return my.name
}

func withSource(s FieldSource) FieldOption {
	return func(f *Field) {
		if f.source != nil {
			f.owner.fail(configError("Field `%s` must have exactly one source.", f.name))
			return
		}
		f.source = s
	}
}

// Description 字段描述
func Description(text string) FieldOption {
	return func(f *Field) {
		f.description = text
	}
}

// Deprecated 标记字段已废弃
func Deprecated(reason string) FieldOption {
	return func(f *Field) {
		f.deprecated = reason
	}
}

// Filterable 字段出现在 Input{T}Filter 中
func Filterable() FieldOption {
	return func(f *Field) {
		f.filterable = true
	}
}

// Sortable 字段可以用于 sorting 参数
func Sortable() FieldOption {
	return func(f *Field) {
		f.sortable = true
	}
}

// SortBy 计算字段的自定义排序
func SortBy(fn func(ctx context.Context, q *gorm.DB, dir SortDirection) *gorm.DB) FieldOption {
	return func(f *Field) {
		f.sortable = true
		f.sortBy = fn
	}
}

// Editable 字段出现在 Input{T} 中并允许提交
func Editable() FieldOption {
	return func(f *Field) {
		f.editable = true
	}
}

// EditableIf 修改值时校验，返回 false 时以 reason 拒绝
func EditableIf(pred func(c FieldChange) bool, reason string) FieldOption {
	return func(f *Field) {
		f.editable = true
		f.editRules = append(f.editRules, editRule{pred: pred, reason: reason})
	}
}

// BatchedEditableIf 同一次提交中修改该字段的实体一起加载附加数据，再逐个校验
func BatchedEditableIf[T, I any](
	batch func(ctx context.Context, entities []*T) (map[*T]I, error),
	pred func(c BatchFieldChange[I]) bool,
	reason string,
) FieldOption {
	return func(f *Field) {
		f.editable = true
		f.batchRules = append(f.batchRules, &batchRule{
			load: func(ctx context.Context, entities []any) (map[any]any, error) {
				typed := make([]*T, 0, len(entities))
				for _, e := range entities {
					t, ok := e.(*T)
					if !ok {
						return nil, fmt.Errorf("entity %T is not %s", e, reflect.TypeFor[T]())
					}
					typed = append(typed, t)
				}
				items, err := batch(ctx, typed)
				if err != nil {
					return nil, err
				}
				out := make(map[any]any, len(items))
				for k, v := range items {
					out[k] = v
				}
				return out, nil
			},
			pred: func(c FieldChange, item any) bool {
				v, _ := item.(I)
				return pred(BatchFieldChange[I]{FieldChange: c, Item: v})
			},
			reason: reason,
		})
	}
}

// MandatoryForUpdate 更新时必须提供
func MandatoryForUpdate() FieldOption {
	return func(f *Field) {
		f.mandatory = true
	}
}

// Default 新建时未提供字段所使用的默认值，value 为函数时每次调用
func Default(value any) FieldOption {
	return func(f *Field) {
		f.hasDefault = true
		if fn, ok := value.(func() any); ok {
			f.defaults = func(context.Context, any) (any, error) { return fn(), nil }
		} else {
			f.defaults = func(context.Context, any) (any, error) { return value, nil }
		}
	}
}

// DefaultFrom 由新建实体计算默认值，在其它字段写入之后执行
func DefaultFrom[T, V any](fn func(ctx context.Context, entity *T) V) FieldOption {
	return func(f *Field) {
		f.hasDefault = true
		f.defaults = func(ctx context.Context, entity any) (any, error) {
			e, ok := entity.(*T)
			if !ok {
				return nil, fmt.Errorf("entity %T is not %s", entity, reflect.TypeFor[T]())
			}
			return fn(ctx, e), nil
		}
	}
}

// OnWrite 自定义写入逻辑，替代反射赋值
func OnWrite[T, V any](fn func(ctx context.Context, entity *T, value V) error) FieldOption {
	return func(f *Field) {
		f.writeType = reflect.TypeFor[V]()
		f.onWrite = func(ctx context.Context, entity any, value any) error {
			e, ok := entity.(*T)
			if !ok {
				return fmt.Errorf("entity %T is not %s", entity, reflect.TypeOf((*T)(nil)).Elem())
			}
			v, err := convert(f.writeType, value)
			if err != nil {
				return err
			}
			return fn(ctx, e, v.Interface().(V))
		}
	}
}

// ReferencesTo 字段保存的是另一个Loader的主键，提交时先保存被引用方
func ReferencesTo(parent Describer) FieldOption {
	return func(f *Field) {
		f.references = parent
	}
}

// As 复用已有投影或Loader的类型
func As(d Describer) FieldOption {
	return func(f *Field) {
		f.output = d
	}
}

// Shape 为字段值声明内联类型，名称为 {Parent}{Field}
func Shape[V any](configure func(p *Projection[V])) FieldOption {
	return func(f *Field) {
		p := NewProjection[V]("", configure)
		f.shape = p.d
	}
}

// AsConnection 关联字段按连接分页返回
func AsConnection() FieldOption {
	return func(f *Field) {
		f.connection = true
	}
}

// editRule 条件可编辑规则
type editRule struct {
	pred   func(c FieldChange) bool
	reason string
}

// batchRule 批量加载附加数据的可编辑规则
type batchRule struct {
	load   func(ctx context.Context, entities []any) (map[any]any, error)
	pred   func(c FieldChange, item any) bool
	reason string
}

// BatchFieldChange 带批量加载结果的字段变化，没有加载到时 Item 为零值
type BatchFieldChange[I any] struct {
	FieldChange
	Item I
}

// FieldChange 更新时某个字段的变化
type FieldChange struct {
	Field         string
	Entity        any
	PreviousValue any
	NextValue     any
}
