package gql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/graphql-go/graphql"
	"github.com/iancoleman/strcase"
	"github.com/ichaly/fluentgql/std"
	"github.com/sqids/sqids-go"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type typeKind int

const (
	kindObject typeKind = iota
	kindInput
	kindFilter
	kindConnection
	kindEdge
	kindSubmitItem
)

type typeKey struct {
	d    *descriptor
	kind typeKind
}

// Registry 管理一个schema内所有生成的类型，保证同一(描述, 种类)只生成一次
type Registry struct {
	db        *gorm.DB
	cfg       *Config
	validator *std.Validator
	cursor    *sqids.Sqids
	namer     schema.Namer

	names      map[string]struct{}
	typeNames  map[*descriptor]string
	types      map[typeKey]graphql.Type
	autos      map[reflect.Type]*graphql.Object
	autoInputs map[reflect.Type]*graphql.InputObject
	inlines    map[*Field]*graphql.Object
	filters    map[string]*graphql.InputObject
	schemas    sync.Map
	submits    []*submitEntry
	submitType *graphql.Object

	pageInfo      *graphql.Object
	sortDirection *graphql.Enum
	sortingInput  *graphql.InputObject

	errs []error
}

func newRegistry(db *gorm.DB, cfg *Config, v *std.Validator) (*Registry, error) {
	cursor, err := sqids.New(sqids.Options{MinLength: uint8(cfg.CursorMinLength)})
	if err != nil {
		return nil, err
	}
	my := &Registry{
		db:         db,
		cfg:        cfg,
		validator:  v,
		cursor:     cursor,
		namer:      schema.NamingStrategy{},
		names:      make(map[string]struct{}),
		typeNames:  make(map[*descriptor]string),
		types:      make(map[typeKey]graphql.Type),
		autos:      make(map[reflect.Type]*graphql.Object),
		autoInputs: make(map[reflect.Type]*graphql.InputObject),
		inlines:    make(map[*Field]*graphql.Object),
		filters:    make(map[string]*graphql.InputObject),
	}
	// 只生成SDL时可以没有数据库
	if db != nil {
		my.namer = db.NamingStrategy
	}
	for _, name := range []string{
		SCALAR_ID, SCALAR_INT, SCALAR_LONG, SCALAR_FLOAT, SCALAR_STRING, SCALAR_BOOLEAN, SCALAR_DATE_TIME, SCALAR_JSON,
		TYPE_PAGE_INFO, TYPE_SORT_DIRECTION, TYPE_SORTING_INPUT, TYPE_SUBMIT_INPUT, TYPE_SUBMIT_OUTPUT,
		TYPE_INT_FILTER, TYPE_LONG_FILTER, TYPE_FLOAT_FILTER, TYPE_STRING_FILTER, TYPE_BOOLEAN_FILTER, TYPE_DATETIME_FILTER, TYPE_ID_FILTER,
		cfg.QueryType, cfg.MutationType,
	} {
		my.names[name] = struct{}{}
	}
	my.buildCommon()
	return my, nil
}

// uniqueName 首次使用保留原名，冲突时追加序号
func (my *Registry) uniqueName(base string) string {
	if _, ok := my.names[base]; !ok {
		my.names[base] = struct{}{}
		return base
	}
	for i := 1; ; i++ {
		name := base + strconv.Itoa(i)
		if _, ok := my.names[name]; !ok {
			my.names[name] = struct{}{}
			return name
		}
	}
}

func (my *Registry) fail(err error) {
	if err != nil {
		my.errs = append(my.errs, err)
	}
}

func (my *Registry) err() error {
	if len(my.errs) > 0 {
		return my.errs[0]
	}
	return nil
}

func (my *Registry) buildCommon() {
	pageField := func(t graphql.Output, fn func(c *connection) (interface{}, error)) *graphql.Field {
		return &graphql.Field{Type: t, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return fn(p.Source.(*connection))
		}}
	}
	my.pageInfo = graphql.NewObject(graphql.ObjectConfig{
		Name:        TYPE_PAGE_INFO,
		Description: DESC_PAGE_INFO,
		Fields: graphql.Fields{
			HAS_NEXT_PAGE:     pageField(graphql.NewNonNull(graphql.Boolean), (*connection).hasNextPage),
			HAS_PREVIOUS_PAGE: pageField(graphql.NewNonNull(graphql.Boolean), (*connection).hasPreviousPage),
			START_CURSOR:      pageField(graphql.String, (*connection).startCursor),
			END_CURSOR:        pageField(graphql.String, (*connection).endCursor),
		},
	})
	my.sortDirection = graphql.NewEnum(graphql.EnumConfig{
		Name:        TYPE_SORT_DIRECTION,
		Description: DESC_SORT_DIRECTION,
		Values: graphql.EnumValueConfigMap{
			string(ASC):  &graphql.EnumValueConfig{Value: ASC},
			string(DESC): &graphql.EnumValueConfig{Value: DESC},
		},
	})
	my.sortingInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name:        TYPE_SORTING_INPUT,
		Description: DESC_SORTING_INPUT,
		Fields: graphql.InputObjectConfigFieldMap{
			SORT_FIELD:     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			SORT_DIRECTION: &graphql.InputObjectFieldConfig{Type: my.sortDirection},
		},
	})
}

// object 返回描述对应的对象类型
func (my *Registry) object(d *descriptor) *graphql.Object {
	key := typeKey{d, kindObject}
	if t, ok := my.types[key]; ok {
		return t.(*graphql.Object)
	}
	my.fail(d.ensure())
	return my.newObject(key, my.uniqueName(d.typeName))
}

func (my *Registry) newObject(key typeKey, name string) *graphql.Object {
	d := key.d
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return my.fieldsOf(d, name)
		}),
	})
	my.types[key] = obj
	my.typeNames[d] = name
	return obj
}

func (my *Registry) fieldsOf(d *descriptor, typeName string) graphql.Fields {
	fields := graphql.Fields{}
	for _, f := range d.fields {
		gf, err := f.source.bind(my, f)
		if err != nil {
			my.fail(err)
			continue
		}
		gf.Name = f.name
		if f.description != "" {
			gf.Description = f.description
		}
		gf.DeprecationReason = f.deprecated
		fields[f.name] = gf
	}
	if len(fields) == 0 {
		my.fail(configError("Type `%s` should have one readable field at least.", typeName))
	}
	return fields
}

// inline 每个字段独立生成一个内联类型
func (my *Registry) inline(f *Field) *graphql.Object {
	if obj, ok := my.inlines[f]; ok {
		return obj
	}
	my.fail(f.shape.ensure())
	owner := my.typeNames[f.owner]
	if owner == "" {
		owner = f.owner.typeName
	}
	obj := my.newObject(typeKey{f.shape, kindObject}, my.uniqueName(owner+strcase.ToCamel(f.name)))
	my.inlines[f] = obj
	return obj
}

// auto 为未声明投影的结构体生成 Auto{Name} 类型
func (my *Registry) auto(t reflect.Type) *graphql.Object {
	if obj, ok := my.autos[t]; ok {
		return obj
	}
	name := my.uniqueName(PREFIX_AUTO + strcase.ToCamel(t.Name()))
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := graphql.Fields{}
			for _, sf := range exportedFields(t) {
				out, err := my.typeOf(sf.Type, name+"."+sf.Name)
				if err != nil {
					my.fail(err)
					continue
				}
				index := sf.Index
				fields[jsonFieldName(sf)] = &graphql.Field{Type: out, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					v, ok := structValue(p.Source)
					if !ok {
						return nil, nil
					}
					fv, err := v.FieldByIndexErr(index)
					if err != nil {
						return nil, nil
					}
					return output(fv), nil
				}}
			}
			if len(fields) == 0 {
				my.fail(configError("Type `%s` should have one readable field at least.", name))
			}
			return fields
		}),
	})
	my.autos[t] = obj
	return obj
}

// outputOf 计算字段的输出类型，As 与 Shape 优先
func (my *Registry) outputOf(f *Field, t reflect.Type) (graphql.Output, error) {
	var named graphql.Output
	switch {
	case f.output != nil:
		named = my.object(f.output.describe())
	case f.shape != nil:
		named = my.inline(f)
	default:
		return my.typeOf(t, f.owner.typeName+"."+f.name)
	}
	return wrap(t, named), nil
}

// wrap 按Go类型的指针与切片结构包装命名类型
func wrap(t reflect.Type, named graphql.Output) graphql.Output {
	switch t.Kind() {
	case reflect.Ptr:
		return nullable(wrap(t.Elem(), named))
	case reflect.Slice, reflect.Array:
		return graphql.NewNonNull(graphql.NewList(wrap(t.Elem(), named)))
	}
	return graphql.NewNonNull(named)
}

func nullable(t graphql.Output) graphql.Output {
	if nn, ok := t.(*graphql.NonNull); ok {
		return nn.OfType
	}
	return t
}

// typeOf 按Go类型推导输出类型
func (my *Registry) typeOf(t reflect.Type, label string) (graphql.Output, error) {
	if s := scalarOf(t); s != nil {
		if s == JSON || t.Kind() == reflect.Ptr || t.Kind() == reflect.Interface || t.Kind() == reflect.Map {
			return s, nil
		}
		return graphql.NewNonNull(s), nil
	}
	switch t.Kind() {
	case reflect.Ptr:
		inner, err := my.typeOf(t.Elem(), label)
		if err != nil {
			return nil, err
		}
		return nullable(inner), nil
	case reflect.Slice, reflect.Array:
		inner, err := my.typeOf(t.Elem(), label)
		if err != nil {
			return nil, err
		}
		return graphql.NewNonNull(graphql.NewList(inner)), nil
	case reflect.Struct:
		return graphql.NewNonNull(my.auto(t)), nil
	}
	return nil, configError("Field `%s` has unsupported type `%s`.", label, t)
}

// inputOf 按Go类型推导输入类型，输入字段一律可空
func (my *Registry) inputOf(t reflect.Type, name string) (graphql.Input, error) {
	if s := scalarOf(t); s != nil {
		return s, nil
	}
	switch t.Kind() {
	case reflect.Ptr:
		return my.inputOf(t.Elem(), name)
	case reflect.Slice, reflect.Array:
		inner, err := my.inputOf(t.Elem(), name)
		if err != nil {
			return nil, err
		}
		return graphql.NewList(graphql.NewNonNull(inner)), nil
	case reflect.Struct:
		return my.autoInput(name, t), nil
	}
	return nil, configError("Input `%s` has unsupported type `%s`.", name, t)
}

// autoInput 由结构体导出字段生成输入类型，按Go类型缓存
func (my *Registry) autoInput(name string, t reflect.Type) *graphql.InputObject {
	if in, ok := my.autoInputs[t]; ok {
		return in
	}
	if !strings.HasPrefix(name, PREFIX_INPUT) {
		name = PREFIX_INPUT + name
	}
	in := my.newInput(my.uniqueName(name), t)
	my.autoInputs[t] = in
	return in
}

// newInput 生成不缓存的输入类型，名称需已去重
func (my *Registry) newInput(name string, t reflect.Type) *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: name,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{}
			for _, sf := range exportedFields(t) {
				it, err := my.inputOf(sf.Type, name+sf.Name)
				if err != nil {
					my.fail(err)
					continue
				}
				fields[jsonFieldName(sf)] = &graphql.InputObjectFieldConfig{Type: it}
			}
			return fields
		}),
	})
}

// schemaOf 解析gorm模型
func (my *Registry) schemaOf(d *descriptor) (*schema.Schema, error) {
	return schema.Parse(d.newModel(), &my.schemas, my.namer)
}

// structField 查找描述类型上的gorm字段
func (my *Registry) structField(d *descriptor, goField string) (*schema.Field, error) {
	sch, err := my.schemaOf(d)
	if err != nil {
		return nil, err
	}
	field := sch.LookUpField(goField)
	if field == nil {
		// 字段名与Go名称只差大小写时，如 id 对应 ID
		for _, sf := range sch.Fields {
			if strings.EqualFold(sf.Name, goField) || strings.EqualFold(sf.DBName, goField) {
				field = sf
				break
			}
		}
	}
	if field == nil || field.DBName == "" {
		return nil, configError("Field `%s` of `%s` is not a column.", goField, d.label())
	}
	return field, nil
}

// identity 返回Loader的主键字段
func (my *Registry) identity(d *descriptor) (*schema.Field, error) {
	if d.loader != nil && d.loader.idField != "" {
		return my.structField(d, d.loader.idField)
	}
	sch, err := my.schemaOf(d)
	if err != nil {
		return nil, err
	}
	if sch.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotIdentifiable, d.label())
	}
	return sch.PrioritizedPrimaryField, nil
}

// exportedFields 返回可见的导出字段，嵌入结构体被展开
func exportedFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous || jsonFieldName(sf) == "-" {
			continue
		}
		out = append(out, sf)
	}
	return out
}

func jsonFieldName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" {
		return strcase.ToLowerCamel(sf.Name)
	}
	return name
}

// structValue 取出源对象的结构体值
func structValue(source interface{}) (reflect.Value, bool) {
	v := reflect.ValueOf(source)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.Kind() == reflect.Struct
}
