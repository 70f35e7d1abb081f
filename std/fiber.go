package std

import (
	"errors"

	"github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/utl"
)

// NewFiber 创建并配置一个新的fiber应用实例
func NewFiber(c *Config, l *log.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               c.Name,
		DisableStartupMessage: !c.IsDebug(),
		JSONEncoder:           utl.MarshalJSON,
		JSONDecoder:           utl.UnmarshalJSON,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: c.IsDebug()}))
	app.Use(cors.New())
	app.Use(compress.New())
	app.Use(fiberzerolog.New(fiberzerolog.Config{
		Logger: l.Zerolog(),
	}))

	return app
}

// errorHandler 统一输出GraphQL风格的错误
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var ex *Exception
	if errors.As(err, &ex) {
		return c.Status(ex.Status()).JSON(Result{Errors: []*Exception{ex}})
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(Result{Errors: []*Exception{NewException(code).WithError(err)}})
}
