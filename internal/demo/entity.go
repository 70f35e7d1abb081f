package demo

import (
	"github.com/ichaly/fluentgql/std"
)

// Department 部门
type Department struct {
	std.Entity `mapstructure:",squash"`
	Name       string `gorm:"size:64;comment:名称" json:"name" validate:"required"`
	Code       string `gorm:"size:32;index;comment:编码" json:"code"`
}

func (Department) Description() string {
	return "部门"
}

// Employee 员工，State 为 1 表示在职
type Employee struct {
	std.Entity   `mapstructure:",squash"`
	Name         string  `gorm:"size:64;comment:姓名" json:"name" validate:"required"`
	Email        string  `gorm:"size:128;comment:邮箱" json:"email" validate:"omitempty,email"`
	Level        int     `gorm:"comment:职级" json:"level" validate:"gte=0"`
	DepartmentId *std.Id `gorm:"index;comment:部门" json:"departmentId,omitempty"`
}

func (Employee) Description() string {
	return "员工"
}

// Entities 需要迁移的实体
func Entities() []interface{} {
	return []interface{}{&Department{}, &Employee{}}
}
