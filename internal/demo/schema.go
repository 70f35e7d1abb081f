package demo

import (
	"context"

	"github.com/iancoleman/strcase"
	"github.com/ichaly/fluentgql/gql"
	"github.com/ichaly/fluentgql/std"
	"github.com/jinzhu/inflection"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transfer 调岗参数
type Transfer struct {
	EmployeeId   std.Id `json:"employeeId"`
	DepartmentId std.Id `json:"departmentId"`
}

// LevelRange 职级区间，Max 为空时不限上限
type LevelRange struct {
	Min int  `json:"min"`
	Max *int `json:"max"`
}

func plural(name string) string {
	return strcase.ToLowerCamel(inflection.Plural(name))
}

// NewSchema 组装部门与员工的查询和变更
func NewSchema(db *gorm.DB, c *gql.Config, v *std.Validator) (*gql.Schema, error) {
	my := NewLoaders(db)
	return gql.NewSchemaBuilder(db, c, gql.WithValidator(v)).Query(func(q *gql.Root) {
		q.Connection(my.Departments, plural("department"))
		q.Connection(my.Employees, plural("employee"))
		q.ByID(my.Departments, "department")
		q.ByID(my.Employees, "employee")
		q.List(my.Employees, "seniors", gql.WithFilter(gql.NewFilter("LevelRange",
			func(ctx context.Context, tx *gorm.DB, r LevelRange) *gorm.DB {
				tx = tx.Where("level >= ?", r.Min)
				if r.Max != nil {
					tx = tx.Where("level <= ?", *r.Max)
				}
				return tx
			},
		)))
	}).Mutation(func(m *gql.Root) {
		m.Submit(my.Departments, plural("department"))
		m.Submit(my.Employees, plural("employee"))
		m.Field("transfer", gql.Mutate(my.transfer), gql.As(my.Employees), gql.Description("调岗，记录操作人"))
	}).Build()
}

// transfer 调岗，在变更事务中读取并返回员工，由事务统一保存
func (my *Loaders) transfer(ctx context.Context, args Transfer) (*Employee, error) {
	tx, err := gql.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d := &Department{}
	if err = tx.First(d, "id = ?", args.DepartmentId).Error; err != nil {
		return nil, err
	}
	e := &Employee{}
	if err = tx.First(e, "id = ?", args.EmployeeId).Error; err != nil {
		return nil, err
	}
	e.Remark = datatypes.JSONMap{
		"operator": std.CurrentUser(ctx).Encode(),
		"from":     lo.FromPtr(e.DepartmentId).Encode(),
	}
	e.DepartmentId = &d.Id
	return e, nil
}
