package gql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SortDirection 排序方向
type SortDirection string

const (
	ASC  SortDirection = "ASC"
	DESC SortDirection = "DESC"
)

func (my SortDirection) desc() bool {
	return my == DESC
}

func parseDirection(v interface{}) SortDirection {
	if v == nil {
		return ASC
	}
	if strings.EqualFold(fmt.Sprint(v), string(DESC)) {
		return DESC
	}
	return ASC
}

// applySorting 先应用 sorting 参数，再追加自然排序保证分页稳定
func (my *Registry) applySorting(ctx context.Context, d *descriptor, q *gorm.DB, value interface{}) (*gorm.DB, error) {
	list, _ := value.([]interface{})
	for _, item := range list {
		m, _ := item.(map[string]interface{})
		name, _ := m[SORT_FIELD].(string)
		dir := parseDirection(m[SORT_DIRECTION])
		f, ok := d.lookup(name)
		if !ok || !f.sortable {
			return nil, badRequest("Field `%s` is not sortable.", name)
		}
		if f.sortBy != nil {
			q = f.sortBy(ctx, q, dir)
			continue
		}
		col, err := my.sortColumn(d, f)
		if err != nil {
			return nil, err
		}
		q = q.Order(clause.OrderByColumn{Column: col, Desc: dir.desc()})
	}
	return my.naturalOrder(d, q)
}

func (my *Registry) sortColumn(d *descriptor, f *Field) (clause.Column, error) {
	src, ok := f.source.(*columnSource)
	if !ok {
		return clause.Column{}, configError("Field `%s` of `%s` cannot be sorted.", f.name, d.label())
	}
	sf, err := my.structField(d, src.goField)
	if err != nil {
		return clause.Column{}, err
	}
	return clause.Column{Table: clause.CurrentTable, Name: sf.DBName}, nil
}

// naturalOrder 使用 Loader.Order，默认按主键升序
func (my *Registry) naturalOrder(d *descriptor, q *gorm.DB) (*gorm.DB, error) {
	var order []string
	if d.loader != nil {
		order = d.loader.order
	}
	if len(order) == 0 {
		id, err := my.identity(d)
		if err != nil {
			// 没有主键时不追加排序
			return q, nil
		}
		return q.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: id.DBName}}), nil
	}
	for _, o := range order {
		desc := strings.HasPrefix(o, "-")
		sf, err := my.structField(d, strings.TrimPrefix(o, "-"))
		if err != nil {
			return nil, err
		}
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: sf.DBName}, Desc: desc})
	}
	return q, nil
}

// checkSortable 构建时校验可排序字段
func (my *Registry) checkSortable(d *descriptor) {
	for _, f := range d.fields {
		if f.sortable && f.sortBy == nil {
			if _, err := my.sortColumn(d, f); err != nil {
				my.fail(err)
			}
		}
	}
}
