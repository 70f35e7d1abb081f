package demo

import (
	"context"

	"github.com/duke-git/lancet/v2/slice"
	"github.com/duke-git/lancet/v2/validator"
	"github.com/ichaly/fluentgql/gql"
	"github.com/ichaly/fluentgql/std"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Loaders 部门与员工互相引用，需要在同一处创建
type Loaders struct {
	db          *gorm.DB
	Departments *gql.Loader[Department]
	Employees   *gql.Loader[Employee]
}

func NewLoaders(db *gorm.DB) *Loaders {
	my := &Loaders{db: db}
	my.Departments = gql.NewLoader("DepartmentLoader", func(l *gql.Loader[Department]) {
		l.IDGenerator(std.NextID).Order("Name").AllowDelete()
		l.Search(func(ctx context.Context, q *gorm.DB, term string) *gorm.DB {
			return q.Where("name LIKE ?", "%"+term+"%")
		})
		l.Field("id")
		l.Field("name", gql.Filterable(), gql.Sortable(), gql.Editable(), gql.Description("部门名称"))
		l.Field("code", gql.Filterable(), gql.Editable(), gql.Default("default"))
		l.Field("createdAt", gql.Sortable())
		l.Field("headcount", gql.FromBatch(func(d *Department) std.Id { return d.Id }, my.headcount),
			gql.Description("在职人数"))
		l.Field("employees", gql.HasMany(my.Employees, "Id", "DepartmentId"), gql.AsConnection())
	})
	my.Employees = gql.NewLoader("EmployeeLoader", func(l *gql.Loader[Employee]) {
		l.IDGenerator(std.NextID).Order("-Level", "Name").AllowDelete()
		l.Security(func(ctx context.Context, q *gorm.DB) *gorm.DB {
			if std.CurrentUser(ctx) == 0 {
				return q.Where("state = ?", 1)
			}
			return q
		})
		l.Search(func(ctx context.Context, q *gorm.DB, term string) *gorm.DB {
			like := "%" + term + "%"
			return q.Where("name LIKE ? OR email LIKE ?", like, like)
		})
		l.Filter(gql.Inline("minLevel", func(ctx context.Context, q *gorm.DB, level int) *gorm.DB {
			return q.Where("level >= ?", level)
		}))
		l.Field("id")
		l.Field("name", gql.Filterable(), gql.Sortable(), gql.Editable(), gql.MandatoryForUpdate())
		l.Field("email", gql.Filterable(), gql.EditableIf(func(c gql.FieldChange) bool {
			next, _ := c.NextValue.(string)
			return next == "" || validator.IsEmail(next)
		}, "邮箱格式错误"))
		l.Field("level", gql.Filterable(), gql.Sortable(), gql.EditableIf(func(c gql.FieldChange) bool {
			return c.NextValue.(int) >= c.PreviousValue.(int)
		}, "职级不能下调"))
		l.Field("state", gql.Filterable())
		l.Field("departmentId", gql.Filterable(), gql.Editable(), gql.ReferencesTo(my.Departments))
		l.Field("department", gql.BelongsTo(my.Departments, "DepartmentId", ""))
	})
	return my
}

type headcount struct {
	DepartmentId std.Id
	Total        int
}

// headcount 一次统计多个部门的在职人数
func (my *Loaders) headcount(ctx context.Context, keys []std.Id) (map[std.Id]int, error) {
	keys = slice.Filter(keys, func(_ int, id std.Id) bool { return id != 0 })
	if len(keys) == 0 {
		return map[std.Id]int{}, nil
	}
	var rows []headcount
	err := my.db.WithContext(ctx).Model(&Employee{}).
		Select("department_id, count(*) AS total").
		Where("state = ? AND department_id IN ?", 1, keys).
		Group("department_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(rows, func(r headcount) (std.Id, int) {
		return r.DepartmentId, r.Total
	}), nil
}
