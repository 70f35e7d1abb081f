package std

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	bigcache_store "github.com/eko/gocache/store/bigcache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/std/internal"
	"github.com/ichaly/fluentgql/utl"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/callbacks"
)

// NewStore 按配置创建缓存，dialect 为 redis 时使用远程缓存，否则使用进程内的 bigcache
func NewStore(c *Config) (*cache.Cache[any], error) {
	ds := c.Cache
	if ds == nil {
		ds = &internal.DataSource{Dialect: "memory"}
	}
	expire := ds.Expire
	if expire <= 0 {
		expire = 30 * time.Minute
	}
	if ds.Dialect == "redis" {
		opts := &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", ds.Host, ds.Port),
			Username: ds.Username,
			Password: ds.Password,
		}
		if ds.Uri != "" {
			parsed, err := redis.ParseURL(ds.Uri)
			if err != nil {
				return nil, err
			}
			opts = parsed
		}
		return cache.New[any](redis_store.NewRedis(redis.NewClient(opts), store.WithExpiration(expire))), nil
	}
	client, err := bigcache.New(context.Background(), bigcache.DefaultConfig(expire))
	if err != nil {
		return nil, err
	}
	return cache.New[any](bigcache_store.NewBigcache(client)), nil
}

type skipCacheKey struct{}

// SkipCache 返回不经过查询缓存的上下文
func SkipCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipCacheKey{}, true)
}

type cachePayload struct {
	RowsAffected int64       `json:"rows_affected"`
	Data         interface{} `json:"data"`
}

// QueryCache gorm 查询缓存插件，写操作按表名标签失效
type QueryCache struct {
	store       *cache.Cache[any]
	exp         time.Duration
	group       *singleflight.Group
	keyGenerate func(*gorm.DB) string
}

func NewQueryCache(s *cache.Cache[any]) gorm.Plugin {
	return &QueryCache{store: s, exp: 30 * time.Minute, group: &singleflight.Group{}, keyGenerate: func(db *gorm.DB) string {
		return fmt.Sprintf(
			"sql:%s",
			utl.MD5(db.Dialector.Explain(db.Statement.SQL.String(), db.Statement.Vars...)),
		)
	}}
}

// Name `gorm.Plugin` implements.
func (my *QueryCache) Name() string { return "gorm-cache" }

// Initialize `gorm.Plugin` implements.
func (my *QueryCache) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Replace("gorm:query", my.query); err != nil {
		return err
	}
	if err := db.Callback().Create().After("gorm:create").Register(my.Name()+":after_create", my.invalidate); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register(my.Name()+":after_update", my.invalidate); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register(my.Name()+":after_delete", my.invalidate)
}

func (my *QueryCache) bypass(db *gorm.DB) bool {
	if db.Statement.Context != nil {
		if skip, _ := db.Statement.Context.Value(skipCacheKey{}).(bool); skip {
			return true
		}
	}
	// 事务内的读取需要看到未提交的写入
	_, inTx := db.Statement.ConnPool.(gorm.TxCommitter)
	return inTx
}

// query replace gorm:query
func (my *QueryCache) query(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	if my.bypass(db) {
		callbacks.Query(db)
		return
	}
	callbacks.BuildQuerySQL(db)
	if db.DryRun || db.Error != nil {
		return
	}
	key := my.keyGenerate(db)

	if val, err := my.store.Get(db.Statement.Context, key); err == nil {
		if my.decode(db, val) {
			log.Debug().Str("key", key).Msg("查询命中缓存")
			return
		}
	}

	executed := false
	val, err, _ := my.group.Do(key, func() (interface{}, error) {
		executed = true
		rows, err := db.Statement.ConnPool.QueryContext(db.Statement.Context, db.Statement.SQL.String(), db.Statement.Vars...)
		if err != nil {
			return nil, err
		}
		defer func() { _ = rows.Close() }()
		gorm.Scan(rows, db, 0)
		if db.Error != nil {
			return nil, db.Error
		}
		encoded, err := utl.MarshalJSON(cachePayload{RowsAffected: db.RowsAffected, Data: db.Statement.Dest})
		if err != nil {
			return nil, err
		}
		_ = my.store.Set(
			db.Statement.Context, key, encoded,
			store.WithExpiration(my.exp),
			store.WithTags([]string{db.Statement.Table}),
		)
		return encoded, nil
	})
	if err != nil {
		if !executed {
			_ = db.AddError(err)
		}
		return
	}
	if !executed && !my.decode(db, val) {
		_ = db.AddError(fmt.Errorf("decode shared query result"))
	}
}

func (my *QueryCache) invalidate(db *gorm.DB) {
	if db.Error != nil || db.Statement.RowsAffected <= 0 {
		return
	}
	if err := my.store.Invalidate(db.Statement.Context, store.WithInvalidateTags([]string{db.Statement.Table})); err != nil {
		log.Warn().Err(err).Str("table", db.Statement.Table).Msg("缓存失效失败")
	}
}

func (my *QueryCache) decode(db *gorm.DB, val interface{}) bool {
	var raw []byte
	switch v := val.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	}
	if len(raw) == 0 || db.Statement.Dest == nil {
		return false
	}

	payload := cachePayload{Data: db.Statement.Dest}
	if err := utl.UnmarshalJSON(raw, &payload); err != nil {
		return false
	}
	db.RowsAffected = payload.RowsAffected
	db.Statement.RowsAffected = payload.RowsAffected
	return true
}
