package std

import (
	"sync"
	"time"

	"github.com/invzhi/next"
	"github.com/sony/sonyflake"
	"gorm.io/gorm"
)

var (
	sf     *sonyflake.Sonyflake
	sfOnce sync.Once
)

func flake() *sonyflake.Sonyflake {
	sfOnce.Do(func() {
		t, _ := time.Parse("2006-01-02", "2023-07-24")
		sf = sonyflake.NewSonyflake(sonyflake.Settings{StartTime: t})
		if sf == nil {
			// 没有私有网络地址时无法推导机器号
			sf = sonyflake.NewSonyflake(sonyflake.Settings{
				StartTime: t,
				MachineID: func() (uint16, error) { return 1, nil },
			})
		}
	})
	return sf
}

// NextId 生成新的分布式主键
func NextId() (Id, error) {
	id, err := flake().NextID()
	return Id(id), err
}

// NextID 适配 gql.Loader 的 IDGenerator
func NextID() (any, error) {
	return NextId()
}

// NewSonyFlake 插入时为标记了 next:sonyflake 的空主键补齐编号
func NewSonyFlake() gorm.Plugin {
	plugin := next.NewPlugin()
	plugin.Register("sonyflake", func(_, zero bool) (interface{}, error) {
		if !zero {
			return nil, next.SkipField
		}
		return NextId()
	})
	return plugin
}
