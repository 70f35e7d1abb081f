package gql

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/std"
	"github.com/ichaly/fluentgql/utl"
)

// Executor 通过HTTP执行GraphQL请求的插件
type Executor struct {
	schema *Schema
	cfg    *Config
}

func NewExecutor(s *Schema, c *Config) *Executor {
	return &Executor{schema: s, cfg: c}
}

func (my *Executor) Base() string {
	return utl.NormalizePath(my.cfg.Endpoint)
}

func (my *Executor) Init(r fiber.Router) {
	r.Get("/", my.handle)
	r.Post("/", my.handle)
}

func (my *Executor) handle(c *fiber.Ctx) error {
	var req Request
	if c.Method() == fiber.MethodGet {
		req.Query = c.Query("query")
		req.OperationName = c.Query("operationName")
		if v := c.Query("variables"); v != "" {
			if err := utl.UnmarshalJSON([]byte(v), &req.Variables); err != nil {
				return std.NewException(fiber.StatusBadRequest).WithMessage("变量格式错误").WithError(err)
			}
		}
	} else if err := c.BodyParser(&req); err != nil {
		return std.NewException(fiber.StatusBadRequest).WithMessage("请求格式错误").WithError(err)
	}
	if strings.TrimSpace(req.Query) == "" {
		return std.NewException(fiber.StatusBadRequest).WithMessage("缺少查询语句")
	}

	id := c.Get(fiber.HeaderXRequestID)
	if id == "" {
		id = c.GetRespHeader(fiber.HeaderXRequestID)
	}
	if id == "" {
		id = uuid.NewString()
	}

	start := time.Now()
	res := my.schema.Do(c.UserContext(), req)
	log.Info().
		Str("request_id", id).
		Str("operation", req.OperationName).
		Bool("failed", res.HasErrors()).
		Dur("elapsed", time.Since(start)).
		Msg("graphql")
	return c.JSON(res)
}
