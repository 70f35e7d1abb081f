package std

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// CurrentUserKey 在 Fiber locals 中存放当前主体
const CurrentUserKey = "__current_subject__"

type subjectKey struct{}

// WithSubject 将令牌主体写入上下文，供安全过滤器读取
func WithSubject(ctx context.Context, subject string) context.Context {
	if subject == "" {
		return ctx
	}
	return context.WithValue(ctx, subjectKey{}, subject)
}

// Subject 读取上下文中的令牌主体
func Subject(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// CurrentUser 将令牌主体解析为数字主键，兼容 shortId 与十进制
func CurrentUser(ctx context.Context) Id {
	id, err := ParseId(Subject(ctx))
	if err != nil {
		return 0
	}
	return id
}

// Auth Bearer 令牌中间件，只负责识别主体，授权交给各 Loader 的安全过滤器
type Auth struct {
	secret   []byte
	header   string
	required bool
}

func NewAuth(c *Config) *Auth {
	a := &Auth{header: fiber.HeaderAuthorization}
	if c.Auth != nil {
		a.secret = []byte(c.Auth.Secret)
		a.required = c.Auth.Required
		if c.Auth.Header != "" {
			a.header = c.Auth.Header
		}
	}
	return a
}

func (my *Auth) Base() string {
	return "/"
}

func (my *Auth) Init(r fiber.Router) {
	r.Use(my.Handler)
}

func (my *Auth) Handler(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Get(my.header))
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" || len(my.secret) == 0 {
		if my.required {
			return NewException(fiber.StatusUnauthorized).WithMessage("缺少访问令牌")
		}
		return c.Next()
	}

	subject, err := my.Verify(token)
	if err != nil {
		return NewException(fiber.StatusUnauthorized).WithMessage("访问令牌无效").WithError(err)
	}
	c.Locals(CurrentUserKey, subject)
	c.SetUserContext(WithSubject(c.UserContext(), subject))
	return c.Next()
}

// Verify 校验 HS256 令牌并返回 sub
func (my *Auth) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return my.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", errors.New("主体标识为空")
	}
	return subject, nil
}

// Sign 签发令牌，用于测试与命令行
func (my *Auth) Sign(subject string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject}).SignedString(my.secret)
}
