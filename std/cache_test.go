package std

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type cacheUser struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:30"`
}

// blockConn 在 fail=true 时拒绝查询，确保查询只能依赖缓存。
type blockConn struct {
	*sql.DB
	fail  bool
	count int
}

var errBlocked = errors.New("should hit cache instead of database")

func (my *blockConn) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	my.count++
	if my.fail {
		return nil, errBlocked
	}
	return my.DB.QueryContext(ctx, query, args...)
}

func (my *blockConn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return my.DB.ExecContext(ctx, query, args...)
}

func (my *blockConn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return my.DB.PrepareContext(ctx, query)
}

func (my *blockConn) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return my.DB.QueryRowContext(ctx, query, args...)
}

func setupCacheDB(t *testing.T) (*gorm.DB, *blockConn) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s, err := NewStore(&Config{})
	require.NoError(t, err)
	require.NoError(t, db.Use(NewQueryCache(s)))

	require.NoError(t, db.AutoMigrate(&cacheUser{}))
	require.NoError(t, db.Create(&cacheUser{ID: 1, Name: "Tom"}).Error)

	sqlDb, err := db.DB()
	require.NoError(t, err)
	conn := &blockConn{DB: sqlDb}
	db.ConnPool = conn
	db.Statement.ConnPool = conn
	return db, conn
}

func TestQueryCacheHit(t *testing.T) {
	db, conn := setupCacheDB(t)

	var first []cacheUser
	require.NoError(t, db.Find(&first).Error)
	require.Len(t, first, 1, "第一次从数据库读取应该返回数据并写入缓存")

	conn.fail = true
	var cached []cacheUser
	require.NoError(t, db.Find(&cached).Error, "第二次查询应命中缓存")
	assert.Equal(t, first, cached)
}

func TestQueryCacheInvalidate(t *testing.T) {
	db, conn := setupCacheDB(t)

	var first []cacheUser
	require.NoError(t, db.Find(&first).Error)
	require.NoError(t, db.Create(&cacheUser{ID: 2, Name: "Jerry"}).Error)

	before := conn.count
	var next []cacheUser
	require.NoError(t, db.Find(&next).Error)
	assert.Len(t, next, 2, "写入后缓存应失效")
	assert.Equal(t, before+1, conn.count)
}

func TestQueryCacheSkip(t *testing.T) {
	db, conn := setupCacheDB(t)

	var rows []cacheUser
	require.NoError(t, db.Find(&rows).Error)

	conn.fail = true
	err := db.WithContext(SkipCache(context.Background())).Find(&rows).Error
	assert.ErrorIs(t, err, errBlocked)
}
