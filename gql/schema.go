package gql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/std"
	"github.com/ichaly/fluentgql/utl"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// SchemaOption 构建选项
type SchemaOption func(*SchemaBuilder)

// WithValidator 保存实体前使用的校验器
func WithValidator(v *std.Validator) SchemaOption {
	return func(b *SchemaBuilder) {
		b.validator = v
	}
}

// SchemaBuilder 收集根字段并生成schema
type SchemaBuilder struct {
	db        *gorm.DB
	cfg       *Config
	validator *std.Validator
	query     func(q *Root)
	mutation  func(m *Root)
}

func NewSchemaBuilder(db *gorm.DB, cfg *Config, opts ...SchemaOption) *SchemaBuilder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	b := &SchemaBuilder{db: db, cfg: cfg.normalize()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Query 配置查询根类型
func (my *SchemaBuilder) Query(fn func(q *Root)) *SchemaBuilder {
	my.query = fn
	return my
}

// Mutation 配置变更根类型
func (my *SchemaBuilder) Mutation(fn func(m *Root)) *SchemaBuilder {
	my.mutation = fn
	return my
}

// Build 生成schema，配置错误优先于graphql-go的校验错误返回
func (my *SchemaBuilder) Build() (*Schema, error) {
	r, err := newRegistry(my.db, my.cfg, my.validator)
	if err != nil {
		return nil, err
	}

	query := newRoot(my.cfg.QueryType)
	if my.query != nil {
		my.query(query)
	}
	if query.d.err != nil {
		return nil, query.d.err
	}
	if len(query.submits) > 0 {
		return nil, configError("Submit is only allowed on `%s`.", my.cfg.MutationType)
	}
	config := graphql.SchemaConfig{Query: r.root(query)}

	if my.mutation != nil {
		mutation := newRoot(my.cfg.MutationType)
		my.mutation(mutation)
		if len(mutation.submits) > 0 {
			mutation.d.field(SUBMIT, []FieldOption{withSource(&submitSource{entries: mutation.submits})})
		}
		if mutation.d.err != nil {
			return nil, mutation.d.err
		}
		r.submits = mutation.submits
		if len(mutation.d.fields) > 0 {
			config.Mutation = r.root(mutation)
		}
	}

	seen := make(map[string]bool)
	r.walk(config.Query, seen)
	if config.Mutation != nil {
		r.walk(config.Mutation, seen)
	}

	schema, err := graphql.NewSchema(config)
	if e := r.err(); e != nil {
		return nil, e
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Int("types", len(schema.TypeMap())).Msg("schema built")
	return &Schema{schema: schema, cfg: my.cfg}, nil
}

// root 根类型名称已预留，不参与去重
func (my *Registry) root(root *Root) *graphql.Object {
	return my.newObject(typeKey{root.d, kindObject}, root.d.typeName)
}

// walk 按字段名顺序展开类型，使生成的名称不受map遍历顺序影响
func (my *Registry) walk(t graphql.Type, seen map[string]bool) {
	switch v := t.(type) {
	case *graphql.NonNull:
		my.walk(v.OfType, seen)
	case *graphql.List:
		my.walk(v.OfType, seen)
	case *graphql.Object:
		if seen[v.Name()] {
			return
		}
		seen[v.Name()] = true
		fields := v.Fields()
		for _, name := range utl.SortKeys(fields) {
			for _, a := range fields[name].Args {
				my.walk(a.Type, seen)
			}
			my.walk(fields[name].Type, seen)
		}
	case *graphql.InputObject:
		if seen[v.Name()] {
			return
		}
		seen[v.Name()] = true
		fields := v.Fields()
		for _, name := range utl.SortKeys(fields) {
			my.walk(fields[name].Type, seen)
		}
	}
}

// Request GraphQL请求
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Schema 可执行的schema
type Schema struct {
	schema graphql.Schema
	cfg    *Config
}

// GraphQL 返回底层的 graphql-go schema
func (my *Schema) GraphQL() *graphql.Schema {
	return &my.schema
}

// Do 执行请求，每个请求使用独立的批量加载作用域
func (my *Schema) Do(ctx context.Context, req Request) *graphql.Result {
	ctx = WithScope(ctx, NewScope())
	ctx, span := startSpan(ctx, "gql.execute", attribute.String("gql.operation", req.OperationName))
	res := graphql.Do(graphql.Params{
		Schema:         my.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	var err error
	if res.HasErrors() {
		err = res.Errors[0]
		log.Warn().Str("operation", req.OperationName).Int("errors", len(res.Errors)).Err(err).Msg("graphql execute failed")
	}
	endSpan(span, err)
	return res
}
