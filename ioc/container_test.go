package ioc

import (
	"path/filepath"
	"testing"

	"github.com/ichaly/fluentgql/gql"
	"github.com/ichaly/fluentgql/internal/demo"
	"github.com/ichaly/fluentgql/utl"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func TestContainer(t *testing.T) {
	config := fx.Supply(filepath.Join(utl.Root(), "cfg", "config.yml"))
	cases := []struct {
		name string
		app  []fx.Option
		ok   bool
	}{
		{name: "示例应用", app: []fx.Option{demo.Module}, ok: true},
		{
			name: "宿主自带schema",
			app: []fx.Option{fx.Provide(func(db *gorm.DB, c *gql.Config) (*gql.Schema, error) {
				return gql.NewSchemaBuilder(db, c).Query(func(q *gql.Root) {
					q.List(demo.NewLoaders(db).Departments, "departments")
				}).Build()
			})},
			ok: true,
		},
		{name: "缺少schema", ok: false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := fx.ValidateApp(Get(c.app...), config)
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
