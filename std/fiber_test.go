package std

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/std/internal"
	"github.com/ichaly/fluentgql/utl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T, auth *internal.AuthConfig) (*fiber.App, *Auth) {
	t.Helper()
	c := &Config{AppConfig: internal.AppConfig{Name: "test", Auth: auth}, Mode: "test"}
	app := NewFiber(c, log.NewLogger(log.WithOutput(io.Discard)))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	a := NewAuth(c)
	Mount(app, PluginGroup{
		Middlewares: []Plugin{a},
		Plugins:     []Plugin{NewHealth(db)},
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(Subject(c.UserContext()))
	})
	return app, a
}

func readResult(t *testing.T, resp *http.Response) Result {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var r Result
	require.NoError(t, utl.UnmarshalJSON(body, &r), string(body))
	return r
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	r := readResult(t, resp)
	assert.Empty(t, r.Errors)
	assert.Equal(t, "up", r.Data.(map[string]interface{})["status"])
}

func TestAuthMiddleware(t *testing.T) {
	app, a := newTestApp(t, &internal.AuthConfig{Secret: "secret"})
	token, err := a.Sign("u1")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "匿名访问", status: http.StatusOK, body: ""},
		{name: "有效令牌", header: "Bearer " + token, status: http.StatusOK, body: "u1"},
		{name: "无效令牌", header: "Bearer broken", status: http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if c.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, c.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, c.status, resp.StatusCode)
			if c.status == http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, c.body, string(body))
			} else {
				r := readResult(t, resp)
				require.Len(t, r.Errors, 1)
				assert.Equal(t, "访问令牌无效", r.Errors[0].Message)
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	app, _ := newTestApp(t, &internal.AuthConfig{Secret: "secret", Required: true})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthVerifyRejectsOtherSecret(t *testing.T) {
	signer := NewAuth(&Config{AppConfig: internal.AppConfig{Auth: &internal.AuthConfig{Secret: "a"}}})
	verifier := NewAuth(&Config{AppConfig: internal.AppConfig{Auth: &internal.AuthConfig{Secret: "b"}}})

	token, err := signer.Sign("u1")
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	assert.Error(t, err)
}
