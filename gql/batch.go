package gql

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/graphql-go/graphql"
	"github.com/ichaly/fluentgql/log"
	"go.opentelemetry.io/otel/attribute"
)

type scopeKey struct{}

// Scope 一次请求内共享的批量加载器
type Scope struct {
	mu       sync.Mutex
	batchers map[batchKey]interface{}
}

// NewScope 创建批量加载作用域
func NewScope() *Scope {
	return &Scope{batchers: make(map[batchKey]interface{})}
}

// WithScope 把作用域放入上下文
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

func scopeOf(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// batchKey 同一字段在参数相同时共享一个批次
type batchKey struct {
	field *Field
	args  string
}

type batchResult[V any] struct {
	value V
	found bool
	err   error
}

type batcher[K comparable, V any] struct {
	mu      sync.Mutex
	ctx     context.Context
	name    string
	fetch   func(ctx context.Context, keys []K) (map[K]V, error)
	pending []K
	queued  map[K]struct{}
	done    map[K]batchResult[V]
}

func newBatcher[K comparable, V any](ctx context.Context, name string, fetch func(context.Context, []K) (map[K]V, error)) *batcher[K, V] {
	return &batcher[K, V]{
		ctx:    ctx,
		name:   name,
		fetch:  fetch,
		queued: make(map[K]struct{}),
		done:   make(map[K]batchResult[V]),
	}
}

// loadBatcher 从作用域中取出批量加载器，没有作用域时每次调用各自成批
func loadBatcher[K comparable, V any](ctx context.Context, key batchKey, fetch func(context.Context, []K) (map[K]V, error)) *batcher[K, V] {
	name := key.field.owner.typeName + "." + key.field.name
	s := scopeOf(ctx)
	if s == nil {
		return newBatcher(ctx, name, fetch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.batchers[key].(*batcher[K, V]); ok {
		return b
	}
	b := newBatcher(ctx, name, fetch)
	s.batchers[key] = b
	return b
}

// load 登记键并返回等待结果的函数，首次等待时统一执行所有登记的键
func (my *batcher[K, V]) load(key K) func() batchResult[V] {
	my.mu.Lock()
	if _, ok := my.done[key]; !ok {
		if _, ok := my.queued[key]; !ok {
			my.queued[key] = struct{}{}
			my.pending = append(my.pending, key)
		}
	}
	my.mu.Unlock()

	return func() batchResult[V] {
		my.mu.Lock()
		defer my.mu.Unlock()
		if _, ok := my.done[key]; !ok {
			my.dispatch()
		}
		return my.done[key]
	}
}

func (my *batcher[K, V]) dispatch() {
	keys := my.pending
	my.pending = nil
	my.queued = make(map[K]struct{})

	ctx, span := startSpan(my.ctx, "gql.batch",
		attribute.String("gql.field", my.name),
		attribute.Int("gql.keys", len(keys)),
	)
	values, err := my.call(ctx, keys)
	endSpan(span, err)
	log.Debug().Str("step", "batch").Str("field", my.name).Int("keys", len(keys)).Err(err).Msg("resolve")

	for _, k := range keys {
		if err != nil {
			my.done[k] = batchResult[V]{err: err}
			continue
		}
		v, ok := values[k]
		my.done[k] = batchResult[V]{value: v, found: ok}
	}
}

func (my *batcher[K, V]) call(ctx context.Context, keys []K) (values map[K]V, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("batch of `%s` panicked: %v", my.name, e)
		}
	}()
	return my.fetch(ctx, keys)
}

// batchSource 按键批量加载字段值
type batchSource struct {
	valueType reflect.Type
	many      bool
	load      func(p graphql.ResolveParams, f *Field) (func() (interface{}, error), error)
}

func (my *batchSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	out, err := r.outputOf(f, my.valueType)
	if err != nil {
		return nil, err
	}
	if !my.many {
		out = nullable(out)
	}
	return &graphql.Field{
		Type: out,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			thunk, err := my.load(p, f)
			if err != nil {
				return nil, err
			}
			return thunk, nil
		},
	}, nil
}

// FromBatch 一对一批量加载，缺失的键返回null
func FromBatch[T any, K comparable, V any](key func(source *T) K, batch func(ctx context.Context, keys []K) (map[K]V, error)) FieldOption {
	return withSource(&batchSource{
		valueType: reflect.TypeFor[V](),
		load: func(p graphql.ResolveParams, f *Field) (func() (interface{}, error), error) {
			s, err := sourceOf[T](p.Source)
			if err != nil {
				return nil, err
			}
			wait := loadBatcher(p.Context, batchKey{field: f}, batch).load(key(s))
			return func() (interface{}, error) {
				res := wait()
				if res.err != nil || !res.found {
					return nil, res.err
				}
				return output(reflect.ValueOf(res.value)), nil
			}, nil
		},
	})
}

// FromBatchList 一对多批量加载，缺失的键返回空列表
func FromBatchList[T any, K comparable, V any](key func(source *T) K, batch func(ctx context.Context, keys []K) (map[K][]V, error)) FieldOption {
	return withSource(&batchSource{
		valueType: reflect.TypeFor[[]V](),
		many:      true,
		load: func(p graphql.ResolveParams, f *Field) (func() (interface{}, error), error) {
			s, err := sourceOf[T](p.Source)
			if err != nil {
				return nil, err
			}
			wait := loadBatcher(p.Context, batchKey{field: f}, batch).load(key(s))
			return func() (interface{}, error) {
				res := wait()
				if res.err != nil {
					return nil, res.err
				}
				return output(reflect.ValueOf(res.value)), nil
			}, nil
		},
	})
}
