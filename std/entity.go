package std

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sqids/sqids-go"
	"gorm.io/datatypes"
)

var shortId, _ = sqids.New(sqids.Options{MinLength: 6})

// Description 实体表注释
type Description interface {
	Description() string
}

// Id 数据库中为数字，对外统一编码为 shortId 字符串
type Id uint64

type Primary struct {
	Id Id `gorm:"primaryKey;autoIncrement:false;comment:主键;next:sonyflake" json:"id,omitempty"`
}

type General struct {
	State     int8              `gorm:"index;comment:状态;default:1" json:"state"`
	Remark    datatypes.JSONMap `gorm:"comment:备注" json:"remark,omitempty"`
	CreatedAt time.Time         `gorm:"index;comment:创建时间;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time         `gorm:"comment:更新时间;autoUpdateTime" json:"updatedAt"`
}

type Entity struct {
	Primary `mapstructure:",squash"`
	General `mapstructure:",squash"`
}

// Encode 将内部数字 ID 编码为可在外部场景稳定传输的字符串。
// 这里使用 shortId 字符串，避免跨语言 number/float64 精度丢失。
func (my Id) Encode() string {
	if my == 0 {
		return ""
	}
	if str, err := shortId.Encode([]uint64{uint64(my)}); err == nil {
		return str
	}
	return strconv.FormatUint(uint64(my), 10)
}

// Decode 将外部传入的 token（十进制字符串或 shortId）解析回内部数字 ID。
func (my *Id) Decode(token string) error {
	id, err := ParseId(token)
	if err != nil {
		return err
	}
	*my = id
	return nil
}

// ParseId 数字优先，避免 "123" 被误解为可解码的 shortId
func ParseId(token string) (Id, error) {
	token = strings.Trim(strings.TrimSpace(token), `"`)
	if token == "" || token == "null" {
		return 0, nil
	}
	if v, err := strconv.ParseUint(token, 10, 64); err == nil {
		return Id(v), nil
	}
	if decoded := shortId.Decode(token); len(decoded) == 1 && shortIdMatches(decoded[0], token) {
		return Id(decoded[0]), nil
	}
	return 0, fmt.Errorf("invalid id %q: %w", token, strconv.ErrSyntax)
}

// sqids 对任意字符串都可能解出结果，需要反向编码确认
func shortIdMatches(id uint64, token string) bool {
	str, err := shortId.Encode([]uint64{id})
	return err == nil && str == token
}

func (my Id) String() string {
	return my.Encode()
}

func (my Id) MarshalJSON() ([]byte, error) {
	if my == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(my.Encode())), nil
}

func (my *Id) UnmarshalJSON(data []byte) error {
	return my.Decode(string(data))
}

// Value 实现 driver.Valuer，落库为数字
func (my Id) Value() (driver.Value, error) {
	return int64(my), nil
}

// Scan 实现 sql.Scanner
func (my *Id) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*my = 0
	case int64:
		*my = Id(v)
	case uint64:
		*my = Id(v)
	case []byte:
		return my.Decode(string(v))
	case string:
		return my.Decode(v)
	default:
		return fmt.Errorf("unsupported id source %T", src)
	}
	return nil
}
