package gql

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ichaly/fluentgql/utl"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type unit struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `validate:"required"`
	Code string
}

type person struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `validate:"required"`
	Email     string
	Age       int
	UnitID    *uint
	ManagerID *uint
	CreatedAt time.Time
	UpdatedAt time.Time
}

// counter 统计执行的查询次数
type counter struct {
	n atomic.Int32
}

func (my *counter) reset()     { my.n.Store(0) }
func (my *counter) value() int { return int(my.n.Load()) }

func newDB(t *testing.T) (*gorm.DB, *counter) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db, seed(t, db)
}

// seed 建表并写入测试数据，返回查询计数器
func seed(t *testing.T, db *gorm.DB) *counter {
	t.Helper()
	require.NoError(t, db.Migrator().DropTable(&person{}, &unit{}))
	require.NoError(t, db.AutoMigrate(&unit{}, &person{}))

	units := []*unit{
		{ID: 1, Name: "研发部", Code: "rd"},
		{ID: 2, Name: "市场部", Code: "mk"},
		{ID: 3, Name: "空部门", Code: "empty"},
	}
	require.NoError(t, db.Create(&units).Error)

	one, two := uint(1), uint(2)
	people := []*person{
		{ID: 1, Name: "Alice", Email: "alice@example.com", Age: 30, UnitID: &one},
		{ID: 2, Name: "Bob", Email: "bob@example.com", Age: 25, UnitID: &one, ManagerID: &one},
		{ID: 3, Name: "Carol", Email: "carol_100%@example.com", Age: 41, UnitID: &two, ManagerID: &one},
		{ID: 4, Name: "Dave", Email: "", Age: 19, UnitID: &two},
		{ID: 5, Name: "Eve", Email: "eve@example.com", Age: 35},
	}
	require.NoError(t, db.Create(&people).Error)

	c := &counter{}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count", func(*gorm.DB) {
		c.n.Add(1)
	}))
	return c
}

func unitLoader() *Loader[unit] {
	return NewLoader[unit]("UnitLoader", func(l *Loader[unit]) {
		l.Field("id")
		l.Field("name", Filterable(), Sortable(), Editable())
		l.Field("code", Filterable(), Editable())
	})
}

func personLoader(units *Loader[unit]) *Loader[person] {
	var people *Loader[person]
	people = NewLoader[person]("PersonLoader", func(l *Loader[person]) {
		l.Search(func(ctx context.Context, q *gorm.DB, term string) *gorm.DB {
			return q.Where("name LIKE ?", "%"+term+"%")
		})
		l.Filter(Inline("minAge", func(ctx context.Context, q *gorm.DB, age int) *gorm.DB {
			return q.Where("age >= ?", age)
		}))
		l.Field("id", Filterable())
		l.Field("name", Filterable(), Sortable(), Editable())
		l.Field("email", Filterable(), Editable())
		l.Field("age", Filterable(), Sortable(), Editable())
		l.Field("unitId", Column("UnitID"), Filterable(), Editable(), ReferencesTo(units))
		l.Field("unit", BelongsTo(units, "UnitID", ""))
		l.Field("manager", BelongsTo(people, "ManagerID", "ID"))
	})
	return people
}

// execute 执行查询并以JSON返回数据
func execute(t *testing.T, s *Schema, query string, vars map[string]interface{}) string {
	t.Helper()
	res := s.Do(context.Background(), Request{Query: query, Variables: vars})
	require.Empty(t, res.Errors)
	data, err := utl.MarshalJSON(res.Data)
	require.NoError(t, err)
	return string(data)
}

// failure 执行查询并返回第一个错误
func failure(t *testing.T, s *Schema, query string, vars map[string]interface{}) string {
	t.Helper()
	res := s.Do(context.Background(), Request{Query: query, Variables: vars})
	require.NotEmpty(t, res.Errors)
	return res.Errors[0].Message
}
