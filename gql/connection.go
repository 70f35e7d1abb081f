package gql

import (
	"context"
	"math"
	"sync"

	"github.com/graphql-go/graphql"
	"gorm.io/gorm"
)

// window 分页参数，偏移量由游标解码
type window struct {
	first  *int
	last   *int
	after  *int
	before *int
}

func (my *Registry) window(args map[string]interface{}) (window, error) {
	var w window
	for _, name := range []string{FIRST, LAST} {
		v, ok := args[name].(int)
		if !ok {
			continue
		}
		if v < 0 {
			return w, badRequest("Argument `%s` must not be negative.", name)
		}
		v = min(v, my.cfg.MaxLimit)
		if name == FIRST {
			w.first = &v
		} else {
			w.last = &v
		}
	}
	for _, name := range []string{AFTER, BEFORE} {
		s, ok := args[name].(string)
		if !ok || s == "" {
			continue
		}
		off, err := my.decodeCursor(s)
		if err != nil {
			return w, err
		}
		if name == AFTER {
			w.after = &off
		} else {
			w.before = &off
		}
	}
	return w, nil
}

func (my *Registry) encodeCursor(offset int) string {
	s, _ := my.cursor.Encode([]uint64{uint64(offset)})
	return s
}

func (my *Registry) decodeCursor(s string) (int, error) {
	nums := my.cursor.Decode(s)
	if len(nums) != 1 || nums[0] > math.MaxInt32 || my.encodeCursor(int(nums[0])) != s {
		return 0, badRequest("Invalid cursor `%s`.", s)
	}
	return int(nums[0]), nil
}

// connection 延迟执行计数与查询，同一连接内共享结果
type connection struct {
	r     *Registry
	w     window
	count func() (int, error)
	fetch func(offset, limit int) ([]interface{}, error)

	countOnce sync.Once
	total     int
	countErr  error

	rowsOnce sync.Once
	start    int
	rows     []interface{}
	rowsErr  error
}

type edge struct {
	cursor string
	node   interface{}
}

func (my *Registry) newConnection(w window, count func() (int, error), fetch func(offset, limit int) ([]interface{}, error)) *connection {
	return &connection{r: my, w: w, count: count, fetch: fetch}
}

// memoryConnection 对已加载的行分页
func (my *Registry) memoryConnection(w window, rows []interface{}) *connection {
	return my.newConnection(w,
		func() (int, error) { return len(rows), nil },
		func(offset, limit int) ([]interface{}, error) {
			if offset >= len(rows) {
				return []interface{}{}, nil
			}
			return rows[offset:min(offset+limit, len(rows))], nil
		},
	)
}

// dbConnection 对查询分页，计数使用未排序的查询
func (my *Registry) dbConnection(d *descriptor, w window, q *gorm.DB, sorted *gorm.DB) *connection {
	return my.newConnection(w,
		func() (int, error) {
			var n int64
			err := q.Session(&gorm.Session{}).Count(&n).Error
			step("count", d)
			return int(n), err
		},
		func(offset, limit int) ([]interface{}, error) {
			step("page", d)
			return my.find(d, sorted.Session(&gorm.Session{}).Offset(offset).Limit(limit))
		},
	)
}

func (my *connection) totalCount() (int, error) {
	my.countOnce.Do(func() {
		my.total, my.countErr = my.count()
	})
	return my.total, my.countErr
}

func (my *connection) load() ([]interface{}, error) {
	my.rowsOnce.Do(func() {
		w := my.w
		start, end := 0, -1
		if w.after != nil {
			start = *w.after + 1
		}
		if w.before != nil {
			end = *w.before
		}
		if w.first != nil && (end < 0 || start+*w.first < end) {
			end = start + *w.first
		}
		if w.last != nil {
			if end < 0 {
				total, err := my.totalCount()
				if err != nil {
					my.rowsErr = err
					return
				}
				end = total
			}
			start = max(start, end-*w.last)
		}
		if w.first == nil && w.last == nil {
			if limit := my.r.cfg.DefaultLimit; end < 0 || start+limit < end {
				end = start + limit
			}
		}
		my.start = start
		if end <= start {
			my.rows = []interface{}{}
			return
		}
		my.rows, my.rowsErr = my.fetch(start, end-start)
	})
	return my.rows, my.rowsErr
}

func (my *connection) edges() ([]interface{}, error) {
	rows, err := my.load()
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(rows))
	for i, row := range rows {
		out[i] = &edge{cursor: my.r.encodeCursor(my.start + i), node: row}
	}
	return out, nil
}

func (my *connection) hasNextPage() (interface{}, error) {
	rows, err := my.load()
	if err != nil {
		return nil, err
	}
	total, err := my.totalCount()
	if err != nil {
		return nil, err
	}
	return my.start+len(rows) < total, nil
}

func (my *connection) hasPreviousPage() (interface{}, error) {
	if _, err := my.load(); err != nil {
		return nil, err
	}
	return my.start > 0, nil
}

func (my *connection) startCursor() (interface{}, error) {
	rows, err := my.load()
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return my.r.encodeCursor(my.start), nil
}

func (my *connection) endCursor() (interface{}, error) {
	rows, err := my.load()
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return my.r.encodeCursor(my.start + len(rows) - 1), nil
}

// connection 返回 {T}Connection
func (my *Registry) connection(d *descriptor) *graphql.Object {
	key := typeKey{d, kindConnection}
	if t, ok := my.types[key]; ok {
		return t.(*graphql.Object)
	}
	node := my.object(d)
	edgeType := my.edge(d)
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: my.uniqueName(node.Name() + SUFFIX_CONNECTION),
		Fields: graphql.Fields{
			TOTAL_COUNT: &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*connection).totalCount()
				},
			},
			ITEMS: &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(node))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*connection).load()
				},
			},
			EDGES: &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(edgeType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*connection).edges()
				},
			},
			PAGE_INFO: &graphql.Field{
				Type: graphql.NewNonNull(my.pageInfo),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source, nil
				},
			},
		},
	})
	my.types[key] = obj
	return obj
}

// edge 返回 {T}Edge
func (my *Registry) edge(d *descriptor) *graphql.Object {
	key := typeKey{d, kindEdge}
	if t, ok := my.types[key]; ok {
		return t.(*graphql.Object)
	}
	node := my.object(d)
	obj := graphql.NewObject(graphql.ObjectConfig{
		Name: my.uniqueName(node.Name() + SUFFIX_EDGE),
		Fields: graphql.Fields{
			CURSOR: &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*edge).cursor, nil
				},
			},
			NODE: &graphql.Field{
				Type: node,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*edge).node, nil
				},
			},
		},
	})
	my.types[key] = obj
	return obj
}

// connectionSource 根字段上的连接
type connectionSource struct {
	d *descriptor
}

func (my *connectionSource) bind(r *Registry, f *Field) (*graphql.Field, error) {
	d := my.d
	conn := r.connection(d)
	args, err := r.listArgs(d, f)
	if err != nil {
		return nil, err
	}
	return &graphql.Field{
		Type: graphql.NewNonNull(conn),
		Args: pagingArgs(args),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return r.resolveConnection(p.Context, d, f, p.Args)
		},
	}, nil
}

func (my *Registry) resolveConnection(ctx context.Context, d *descriptor, f *Field, args map[string]interface{}) (*connection, error) {
	w, err := my.window(args)
	if err != nil {
		return nil, err
	}
	q, err := my.query(ctx, d, f, args)
	if err != nil {
		return nil, err
	}
	sorted, err := my.sorted(ctx, d, q, args)
	if err != nil {
		return nil, err
	}
	return my.dbConnection(d, w, q, sorted), nil
}
