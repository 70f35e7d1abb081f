package gql

import (
	"context"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/ichaly/fluentgql/utl"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// query 依次应用安全过滤、过滤与搜索，排序与分页由调用方追加
func (my *Registry) query(ctx context.Context, d *descriptor, f *Field, args map[string]interface{}) (*gorm.DB, error) {
	q, err := d.base(ctx, my.db)
	if err != nil {
		return nil, err
	}
	step("security", d)

	if q, err = my.applyFilter(ctx, d, f, q, args[FILTER]); err != nil {
		return nil, err
	}
	step("filter", d)

	q = my.applySearch(ctx, d, q, args[SEARCH])
	step("search", d)
	return q, nil
}

// applySearch 空白搜索词被忽略
func (my *Registry) applySearch(ctx context.Context, d *descriptor, q *gorm.DB, value interface{}) *gorm.DB {
	term, _ := value.(string)
	term = strings.TrimSpace(term)
	if term == "" || d.loader == nil || d.loader.search == nil {
		return q
	}
	return d.loader.search(ctx, q, term)
}

// sorted 在独立会话上追加排序，原查询仍可用于计数
func (my *Registry) sorted(ctx context.Context, d *descriptor, q *gorm.DB, args map[string]interface{}) (*gorm.DB, error) {
	s, err := my.applySorting(ctx, d, q.Session(&gorm.Session{}), args[SORTING])
	if err != nil {
		return nil, err
	}
	step("sort", d)
	return s, nil
}

// find 加载行并展开为 []interface{}
func (my *Registry) find(d *descriptor, q *gorm.DB) ([]interface{}, error) {
	slice := d.newSlice()
	if err := q.Find(slice).Error; err != nil {
		return nil, err
	}
	step("project", d)
	return items(slice), nil
}

// listArgs 列表字段共用的 filter、search、sorting 参数
func (my *Registry) listArgs(d *descriptor, f *Field) (graphql.FieldConfigArgument, error) {
	args := graphql.FieldConfigArgument{}
	if f.custom != nil {
		t, err := my.customFilter(f.custom)
		if err != nil {
			return nil, err
		}
		args[FILTER] = &graphql.ArgumentConfig{Type: t}
	} else if in := my.filter(d); in != nil {
		args[FILTER] = &graphql.ArgumentConfig{Type: in}
	}
	if d.loader != nil && d.loader.search != nil {
		args[SEARCH] = &graphql.ArgumentConfig{Type: graphql.String}
	}
	if lo.SomeBy(d.fields, func(f *Field) bool { return f.sortable }) {
		my.checkSortable(d)
		args[SORTING] = &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(my.sortingInput))}
	}
	return args, nil
}

func pagingArgs(args graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	args[FIRST] = &graphql.ArgumentConfig{Type: graphql.Int}
	args[AFTER] = &graphql.ArgumentConfig{Type: graphql.String}
	args[LAST] = &graphql.ArgumentConfig{Type: graphql.Int}
	args[BEFORE] = &graphql.ArgumentConfig{Type: graphql.String}
	return args
}

// fingerprint 参数相同的字段共享批次
func fingerprint(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	s, err := utl.NewJSON().MarshalToString(args)
	if err != nil {
		return ""
	}
	return s
}
