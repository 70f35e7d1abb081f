package gql

import (
	"context"
	"reflect"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/huandu/go-clone"
	"github.com/iancoleman/strcase"
	"github.com/ichaly/fluentgql/utl"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type submitEntry struct {
	name string
	d    *descriptor
}

// Submit 把Loader加入批量提交，字段出现在 SubmitInputType 与 SubmitOutput 中
func (my *Root) Submit(l Describer, fieldName string) {
	if strings.TrimSpace(fieldName) == "" {
		my.d.fail(ErrEmptyFieldName)
		return
	}
	name := strcase.ToLowerCamel(fieldName)
	d := loaderOf(my, l, name)
	for _, e := range my.submits {
		if e.name == name {
			my.d.fail(configError("A field with the name `%s` is already registered.", name))
			return
		}
	}
	my.submits = append(my.submits, &submitEntry{name: name, d: d})
}

// submitResult 提交结果中的一项
type submitResult struct {
	id      interface{}
	payload interface{}
}

// input 返回 Input{T}
func (my *Registry) input(d *descriptor) *graphql.InputObject {
	key := typeKey{d, kindInput}
	if t, ok := my.types[key]; ok {
		return t.(*graphql.InputObject)
	}
	name := my.uniqueName(PREFIX_INPUT + my.object(d).Name())
	in := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: name,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{
				ID: &graphql.InputObjectFieldConfig{Type: graphql.ID},
			}
			for _, f := range d.fields {
				if !f.editable || f.name == ID {
					continue
				}
				t, err := my.editType(d, f, name)
				if err != nil {
					my.fail(err)
					continue
				}
				fields[f.name] = &graphql.InputObjectFieldConfig{Type: t, Description: f.description}
			}
			if d.loader != nil && d.loader.allowDelete {
				fields[DELETE] = &graphql.InputObjectFieldConfig{Type: graphql.Boolean}
			}
			return fields
		}),
	})
	my.types[key] = in
	return in
}

// editType 可编辑字段的输入类型，引用字段使用ID以便传入占位主键
func (my *Registry) editType(d *descriptor, f *Field, parent string) (graphql.Input, error) {
	if f.references != nil {
		return graphql.ID, nil
	}
	if f.writeType != nil {
		return my.inputOf(f.writeType, parent+strcase.ToCamel(f.name))
	}
	if col, ok := f.source.(*columnSource); ok {
		if sf, ok := col.structField(d.goType); ok {
			return my.inputOf(sf.Type, parent+strcase.ToCamel(f.name))
		}
	}
	return nil, configError("Field `%s` of `%s` must be a column or have OnWrite.", f.name, d.label())
}

// submitItem 返回 {T}SubmitItem
func (my *Registry) submitItem(d *descriptor) *graphql.Object {
	key := typeKey{d, kindSubmitItem}
	if t, ok := my.types[key]; ok {
		return t.(*graphql.Object)
	}
	node := my.object(d)
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: my.uniqueName(node.Name() + SUFFIX_SUBMIT_ITEM),
		Fields: graphql.Fields{
			ID: &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*submitResult).id, nil
				},
			},
			PAYLOAD: &graphql.Field{
				Type: graphql.NewNonNull(node),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*submitResult).payload, nil
				},
			},
		},
	})
	my.types[key] = obj
	return obj
}

type submitSource struct {
	entries []*submitEntry
}

func (my *submitSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	out, err := r.submitOutput()
	if err != nil {
		return nil, err
	}
	entries, err := submitOrder(my.entries)
	if err != nil {
		return nil, err
	}
	inputs := graphql.InputObjectConfigFieldMap{}
	for _, e := range my.entries {
		inputs[e.name] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(r.input(e.d)))}
	}
	return &graphql.Field{
		Type: graphql.NewNonNull(out),
		Args: graphql.FieldConfigArgument{
			PAYLOAD: &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewInputObject(graphql.InputObjectConfig{
				Name:        TYPE_SUBMIT_INPUT,
				Description: DESC_SUBMIT_INPUT,
				Fields:      inputs,
			}))},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			payload, _ := p.Args[PAYLOAD].(map[string]interface{})
			return r.submit(p.Context, entries, payload)
		},
	}, nil
}

// submitOutput 返回 SubmitOutput，submit 与返回实体列表的变更字段共用
func (my *Registry) submitOutput() (*graphql.Object, error) {
	if my.submitType != nil {
		return my.submitType, nil
	}
	if len(my.submits) == 0 {
		return nil, configError("Type `%s` requires submit fields.", TYPE_SUBMIT_OUTPUT)
	}
	outputs := graphql.Fields{}
	for _, e := range my.submits {
		my.object(e.d)
		if _, err := my.identity(e.d); err != nil {
			return nil, err
		}
		outputs[e.name] = &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(my.submitItem(e.d))))}
	}
	my.submitType = graphql.NewObject(graphql.ObjectConfig{
		Name:        TYPE_SUBMIT_OUTPUT,
		Description: DESC_SUBMIT_OUTPUT,
		Fields:      outputs,
	})
	return my.submitType, nil
}

// submitOrder 被引用的Loader先保存，循环引用报错
func submitOrder(entries []*submitEntry) ([]*submitEntry, error) {
	deps := make(map[*submitEntry][]*submitEntry)
	for _, child := range entries {
		for _, f := range child.d.fields {
			if f.references == nil {
				continue
			}
			target := f.references.describe()
			for _, parent := range entries {
				if parent != child && parent.d == target {
					deps[child] = append(deps[child], parent)
				}
			}
		}
	}

	var (
		order   []*submitEntry
		visited = make(map[*submitEntry]int)
		visit   func(e *submitEntry) error
	)
	visit = func(e *submitEntry) error {
		switch visited[e] {
		case 1:
			return configError("Circular reference detected at submit field `%s`.", e.name)
		case 2:
			return nil
		}
		visited[e] = 1
		for _, parent := range deps[e] {
			if err := visit(parent); err != nil {
				return err
			}
		}
		visited[e] = 2
		order = append(order, e)
		return nil
	}
	for _, e := range entries {
		if err := visit(e); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// submit 在一个事务中保存所有提交的实体
func (my *Registry) submit(ctx context.Context, entries []*submitEntry, payload map[string]interface{}) (map[string]interface{}, error) {
	ctx, span := startSpan(ctx, "gql.save", attribute.Int("gql.fields", len(payload)))
	out := make(map[string]interface{}, len(entries))
	err := my.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := &saver{
			r:       my,
			ctx:     withTx(ctx, tx),
			tx:      tx,
			ids:     make(map[*descriptor]map[string]interface{}),
			saved:   make(map[*descriptor][]interface{}),
			batches: make(map[*batchRule]map[any]any),
		}
		for _, e := range entries {
			list, _ := payload[e.name].([]interface{})
			results, err := s.save(e.d, list)
			if err != nil {
				return err
			}
			out[e.name] = results
		}
		return s.afterSave(entries)
	})
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type saver struct {
	r       *Registry
	ctx     context.Context
	tx      *gorm.DB
	ids     map[*descriptor]map[string]interface{}
	saved   map[*descriptor][]interface{}
	batches map[*batchRule]map[any]any
}

func (my *saver) save(d *descriptor, list []interface{}) ([]interface{}, error) {
	id, err := my.r.identity(d)
	if err != nil {
		return nil, err
	}
	existing, err := my.existing(d, id, list)
	if err != nil {
		return nil, err
	}
	if err := my.prepare(d, existing, id, list); err != nil {
		return nil, err
	}

	results := make([]interface{}, 0, len(list))
	for _, raw := range list {
		input, _ := raw.(map[string]interface{})
		if input == nil {
			continue
		}
		payloadID := ""
		if v := input[ID]; v != nil {
			payloadID = toString(v)
		}
		my.rewrite(d, input)

		var entity interface{}
		if payloadID != "" {
			if k, err := columnValue(id.FieldType, payloadID); err == nil {
				entity = existing[keyOf(reflect.ValueOf(k))]
			}
		}

		remove, _ := input[DELETE].(bool)
		switch {
		case remove:
			if d.loader == nil || !d.loader.allowDelete {
				return nil, forbidden("Entities of `%s` cannot be deleted.", d.typeName)
			}
			if entity == nil {
				return nil, newError(CodeNotFound, "Entity `%s` of `%s` is not found.", payloadID, d.typeName)
			}
			if err := my.tx.Delete(entity).Error; err != nil {
				return nil, err
			}
			step("delete", d)
		case entity != nil:
			if err := my.update(d, entity, input); err != nil {
				return nil, err
			}
		default:
			if entity, err = my.create(d, id, input); err != nil {
				return nil, err
			}
		}

		persisted, _ := id.ValueOf(my.ctx, reflect.Indirect(reflect.ValueOf(entity)))
		if payloadID != "" {
			if my.ids[d] == nil {
				my.ids[d] = make(map[string]interface{})
			}
			my.ids[d][payloadID] = persisted
		}
		if !remove {
			my.saved[d] = append(my.saved[d], entity)
		}
		var resultID interface{} = payloadID
		if payloadID == "" {
			resultID = output(reflect.ValueOf(persisted))
		}
		results = append(results, &submitResult{id: resultID, payload: entity})
	}
	return results, nil
}

// existing 通过Loader查询与安全过滤一次性加载已存在的实体
func (my *saver) existing(d *descriptor, id *schema.Field, list []interface{}) (map[interface{}]interface{}, error) {
	var keys []interface{}
	for _, raw := range list {
		input, _ := raw.(map[string]interface{})
		if v := input[ID]; v != nil {
			if k, err := columnValue(id.FieldType, v); err == nil {
				keys = append(keys, k)
			}
		}
	}
	found := make(map[interface{}]interface{})
	if len(keys) == 0 {
		return found, nil
	}
	q, err := d.base(my.ctx, my.tx)
	if err != nil {
		return nil, err
	}
	column := clause.Column{Table: clause.CurrentTable, Name: id.DBName}
	rows, err := my.r.find(d, q.Where(clause.IN{Column: column, Values: lo.Uniq(keys)}))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		v, _ := id.ValueOf(my.ctx, reflect.Indirect(reflect.ValueOf(row)))
		found[keyOf(reflect.ValueOf(v))] = row
	}
	return found, nil
}

// prepare 按字段收集本次会被修改的已有实体，一次性加载批量规则需要的数据
func (my *saver) prepare(d *descriptor, existing map[interface{}]interface{}, id *schema.Field, list []interface{}) error {
	changes := make(map[*Field][]any)
	for _, raw := range list {
		input, _ := raw.(map[string]interface{})
		if input == nil || input[ID] == nil {
			continue
		}
		if remove, _ := input[DELETE].(bool); remove {
			continue
		}
		k, err := columnValue(id.FieldType, toString(input[ID]))
		if err != nil {
			continue
		}
		entity := existing[keyOf(reflect.ValueOf(k))]
		if entity == nil {
			continue
		}
		for _, f := range d.fields {
			value, ok := input[f.name]
			if !ok || len(f.batchRules) == 0 {
				continue
			}
			// 引用字段可能还是占位主键，转换失败时留给 update 报错
			prev, next, err := my.values(f, entity, value)
			if err != nil || reflect.DeepEqual(prev, next) {
				continue
			}
			changes[f] = append(changes[f], entity)
		}
	}
	for _, f := range d.fields {
		entities := changes[f]
		if len(entities) == 0 {
			continue
		}
		for _, rule := range f.batchRules {
			items, err := rule.load(my.ctx, entities)
			if err != nil {
				return err
			}
			my.batches[rule] = items
		}
	}
	return nil
}

// rewrite 把引用字段中的占位主键替换为已保存的主键
func (my *saver) rewrite(d *descriptor, input map[string]interface{}) {
	for _, f := range d.fields {
		if f.references == nil {
			continue
		}
		s, ok := input[f.name].(string)
		if !ok {
			continue
		}
		if v, ok := my.ids[f.references.describe()][s]; ok {
			input[f.name] = v
		}
	}
}

func (my *saver) update(d *descriptor, entity interface{}, input map[string]interface{}) error {
	snapshot := clone.Clone(entity)
	for _, f := range d.fields {
		if _, ok := input[f.name]; f.mandatory && !ok {
			return badRequest("Field `%s` of `%s` is mandatory for update.", f.name, d.typeName)
		}
	}
	for _, key := range utl.SortKeys(input) {
		if key == ID || key == DELETE {
			continue
		}
		f, ok := d.lookup(key)
		if !ok || !f.editable {
			return forbidden("Field `%s` of `%s` is not editable.", key, d.typeName)
		}
		prev, next, err := my.values(f, entity, input[key])
		if err != nil {
			return err
		}
		if reflect.DeepEqual(prev, next) {
			continue
		}
		change := FieldChange{Field: f.name, Entity: entity, PreviousValue: prev, NextValue: next}
		for _, rule := range f.editRules {
			if !rule.pred(change) {
				return forbidden("%s", rule.reason)
			}
		}
		for _, rule := range f.batchRules {
			if !rule.pred(change, my.batches[rule][entity]) {
				return forbidden("%s", rule.reason)
			}
		}
		if err := my.write(f, entity, input[key]); err != nil {
			return err
		}
	}
	if err := my.validate(entity); err != nil {
		return err
	}

	changed, err := my.changed(d, entity, snapshot)
	if err != nil || len(changed) == 0 {
		return err
	}
	step("update", d)
	return my.tx.Model(entity).Select(changed).Updates(entity).Error
}

func (my *saver) create(d *descriptor, id *schema.Field, input map[string]interface{}) (interface{}, error) {
	entity := d.newModel()
	if d.loader != nil && d.loader.idGen != nil {
		v, err := d.loader.idGen()
		if err != nil {
			return nil, err
		}
		fv := reflect.ValueOf(entity).Elem().FieldByIndex(id.StructField.Index)
		cv, err := convert(fv.Type(), v)
		if err != nil {
			return nil, err
		}
		fv.Set(cv)
	}
	for _, key := range utl.SortKeys(input) {
		if key == ID || key == DELETE {
			continue
		}
		f, ok := d.lookup(key)
		if !ok || !f.editable {
			return nil, forbidden("Field `%s` of `%s` is not editable.", key, d.typeName)
		}
		if err := my.write(f, entity, input[key]); err != nil {
			return nil, err
		}
	}
	// 默认值在提交的字段写入后计算，可以依赖实体上已有的值
	for _, f := range d.fields {
		if _, ok := input[f.name]; !f.hasDefault || ok {
			continue
		}
		v, err := f.defaults(my.ctx, entity)
		if err != nil {
			return nil, err
		}
		if err := my.write(f, entity, v); err != nil {
			return nil, err
		}
	}
	if err := my.validate(entity); err != nil {
		return nil, err
	}
	step("create", d)
	if err := my.tx.Create(entity).Error; err != nil {
		return nil, err
	}
	return entity, nil
}

// values 返回字段的当前值与转换后的新值
func (my *saver) values(f *Field, entity interface{}, raw interface{}) (interface{}, interface{}, error) {
	if f.onWrite != nil && f.writeType != nil {
		next, err := convert(f.writeType, raw)
		if err != nil {
			return nil, nil, badRequest("Invalid value of `%s`: %w", f.name, err)
		}
		var prev interface{}
		if fv, ok := columnValueOf(f, entity); ok {
			prev = fv.Interface()
		}
		return prev, next.Interface(), nil
	}
	fv, ok := columnValueOf(f, entity)
	if !ok {
		return nil, nil, configError("Field `%s` of `%s` must be a column or have OnWrite.", f.name, f.owner.label())
	}
	next, err := convert(fv.Type(), raw)
	if err != nil {
		return nil, nil, badRequest("Invalid value of `%s`: %w", f.name, err)
	}
	return fv.Interface(), next.Interface(), nil
}

// write 优先使用 OnWrite，否则通过反射赋值
func (my *saver) write(f *Field, entity interface{}, raw interface{}) error {
	if f.onWrite != nil {
		return f.onWrite(my.ctx, entity, raw)
	}
	fv, ok := columnValueOf(f, entity)
	if !ok || !fv.CanSet() {
		return configError("Field `%s` of `%s` must be a column or have OnWrite.", f.name, f.owner.label())
	}
	v, err := convert(fv.Type(), raw)
	if err != nil {
		return badRequest("Invalid value of `%s`: %w", f.name, err)
	}
	fv.Set(v)
	return nil
}

func columnValueOf(f *Field, entity interface{}) (reflect.Value, bool) {
	col, ok := f.source.(*columnSource)
	if !ok {
		return reflect.Value{}, false
	}
	sf, ok := col.structField(f.owner.goType)
	if !ok {
		return reflect.Value{}, false
	}
	v, ok := structValue(entity)
	if !ok {
		return reflect.Value{}, false
	}
	fv, err := v.FieldByIndexErr(sf.Index)
	return fv, err == nil
}

func (my *saver) validate(entity interface{}) error {
	if my.r.validator == nil {
		return nil
	}
	return my.r.validator.Struct(entity)
}

// changed 对比快照得到需要更新的列
func (my *saver) changed(d *descriptor, entity, snapshot interface{}) ([]string, error) {
	sch, err := my.r.schemaOf(d)
	if err != nil {
		return nil, err
	}
	ev := reflect.Indirect(reflect.ValueOf(entity))
	sv := reflect.Indirect(reflect.ValueOf(snapshot))
	var columns []string
	for _, field := range sch.Fields {
		if field.DBName == "" || field.PrimaryKey {
			continue
		}
		a, _ := field.ValueOf(my.ctx, ev)
		b, _ := field.ValueOf(my.ctx, sv)
		if !reflect.DeepEqual(a, b) {
			columns = append(columns, field.DBName)
		}
	}
	if len(columns) == 0 {
		return nil, nil
	}
	for _, field := range sch.Fields {
		if field.AutoUpdateTime > 0 && !lo.Contains(columns, field.DBName) {
			columns = append(columns, field.DBName)
		}
	}
	return columns, nil
}

// afterSave 执行保存钩子，返回的实体在同一事务中保存
func (my *saver) afterSave(entries []*submitEntry) error {
	done := make(map[*descriptor]bool)
	for _, e := range entries {
		if done[e.d] || e.d.loader == nil || e.d.loader.afterSave == nil {
			continue
		}
		done[e.d] = true
		extra, err := e.d.loader.afterSave(my.ctx, my.tx, my.saved[e.d])
		if err != nil {
			return err
		}
		step("afterSave", e.d)
		if err := my.r.persist(my.ctx, my.tx, extra, false); err != nil {
			return err
		}
	}
	return nil
}
