package gql

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
	"gorm.io/gorm"
)

// Describer 由 Projection 与 Loader 实现，描述一个可读的GraphQL类型
type Describer interface {
	describe() *descriptor
}

// descriptor 是 Projection 与 Loader 的非泛型内核
type descriptor struct {
	name      string
	typeName  string
	goType    reflect.Type
	configure func()
	once      sync.Once
	fields    []*Field
	index     map[string]*Field
	err       error
	loader    *loaderSpec
}

func newDescriptor(name string, goType reflect.Type) *descriptor {
	return &descriptor{
		name:   name,
		goType: goType,
		index:  make(map[string]*Field),
	}
}

// ensure 延迟执行配置，允许类型之间循环引用
func (my *descriptor) ensure() error {
	my.once.Do(func() {
		if my.configure != nil {
			my.configure()
		}
		if my.typeName == "" {
			my.typeName = my.defaultTypeName()
		}
	})
	return my.err
}

func (my *descriptor) defaultTypeName() string {
	if my.loader != nil && my.name != "" {
		if base := strings.TrimSuffix(my.name, SUFFIX_LOADER); base != "" {
			return strcase.ToCamel(base)
		}
	}
	if my.name != "" {
		return strcase.ToCamel(my.name)
	}
	return my.goType.Name()
}

// label 用于错误信息
func (my *descriptor) label() string {
	if my.name != "" {
		return my.name
	}
	return my.goType.Name()
}

func (my *descriptor) fail(err error) {
	if my.err == nil {
		my.err = err
	}
}

func (my *descriptor) field(name string, opts []FieldOption) *Field {
	f := &Field{owner: my}
	if strings.TrimSpace(name) == "" {
		my.fail(ErrEmptyFieldName)
		return f
	}
	f.name = strcase.ToLowerCamel(name)
	f.raw = name
	if _, ok := my.index[f.name]; ok {
		my.fail(configError("A field with the name `%s` is already registered.", f.name))
		return f
	}
	for _, o := range opts {
		o(f)
	}
	if f.source == nil {
		f.source = &columnSource{goField: strcase.ToCamel(name)}
	}
	my.fields = append(my.fields, f)
	my.index[f.name] = f
	return f
}

// lookup 按GraphQL字段名查找
func (my *descriptor) lookup(name string) (*Field, bool) {
	f, ok := my.index[name]
	return f, ok
}

// newModel 返回 *T
func (my *descriptor) newModel() interface{} {
	return reflect.New(my.goType).Interface()
}

// newSlice 返回 *[]*T
func (my *descriptor) newSlice() interface{} {
	return reflect.New(reflect.SliceOf(reflect.PointerTo(my.goType))).Interface()
}

// items 把 *[]*T 展开为 []interface{}
func items(slice interface{}) []interface{} {
	v := reflect.Indirect(reflect.ValueOf(slice))
	out := make([]interface{}, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out
}

// loaderSpec 保存 Loader 独有的数据访问配置
type loaderSpec struct {
	query       func(ctx context.Context, db *gorm.DB) *gorm.DB
	security    func(ctx context.Context, q *gorm.DB) *gorm.DB
	idField     string
	order       []string
	search      func(ctx context.Context, q *gorm.DB, term string) *gorm.DB
	filters     []*InlineFilter
	idGen       func() (any, error)
	afterSave   func(ctx context.Context, tx *gorm.DB, saved []any) ([]any, error)
	allowDelete bool
}

// base 构建基础查询并立即应用安全过滤器
func (my *descriptor) base(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	l := my.loader
	if l == nil {
		return nil, configError("Type `%s` is not a loader.", my.typeName)
	}
	var q *gorm.DB
	if l.query != nil {
		q = l.query(ctx, db.WithContext(ctx))
	} else {
		q = db.WithContext(ctx).Model(my.newModel())
	}
	if q == nil {
		return nil, configError("Query of `%s` must not be nil.", my.label())
	}
	if l.security == nil {
		return q, nil
	}
	before := modelType(q)
	secured := l.security(ctx, q)
	if secured == nil || modelType(secured) != before {
		return nil, configError("Security filter of `%s` must be based on the passed query.", my.label())
	}
	return secured, nil
}

func modelType(q *gorm.DB) reflect.Type {
	if q == nil || q.Statement == nil || q.Statement.Model == nil {
		return nil
	}
	t := reflect.TypeOf(q.Statement.Model)
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t
}

func (my *descriptor) String() string {
	return fmt.Sprintf("%s(%s)", my.label(), my.goType)
}
