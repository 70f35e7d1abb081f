package std

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Health struct {
	db      *gorm.DB
	started time.Time
}

func NewHealth(db *gorm.DB) *Health {
	return &Health{db: db, started: time.Now()}
}

func (my *Health) Base() string {
	return "/health"
}

func (my *Health) Init(r fiber.Router) {
	r.Get("/", WrapHandler(my.check))
}

func (my *Health) check(c *fiber.Ctx) (any, error) {
	sqlDb, err := my.db.DB()
	if err == nil {
		err = sqlDb.PingContext(c.UserContext())
	}
	if err != nil {
		return nil, NewException(fiber.StatusServiceUnavailable).WithMessage("数据库不可用").WithError(err)
	}
	return fiber.Map{
		"status":  "up",
		"version": Version,
		"uptime":  time.Since(my.started).Round(time.Second).String(),
	}, nil
}
