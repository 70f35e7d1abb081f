package gql

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/ichaly/fluentgql/log"
	"github.com/ichaly/fluentgql/std"
	"github.com/ichaly/fluentgql/utl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	s, _ := querySchema(t)
	cfg := DefaultConfig()
	app := std.NewFiber(&std.Config{Mode: "test"}, log.NewLogger(log.WithOutput(io.Discard)))
	std.Mount(app, std.PluginGroup{Plugins: []std.Plugin{NewExecutor(s, cfg)}})
	return app
}

func readBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, utl.UnmarshalJSON(body, &out), string(body))
	return out
}

func TestExecutor(t *testing.T) {
	app := newTestApp(t)
	query := `query People($name: String) { people(filter: {name: {eq: $name}}) { name } }`

	cases := []struct {
		name string
		req  func() *http.Request
	}{
		{
			name: "POST请求",
			req: func() *http.Request {
				body := `{"query":` + utl.Must(utl.NewJSON().MarshalToString(query)) + `,"variables":{"name":"Bob"},"operationName":"People"}`
				req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
				req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return req
			},
		},
		{
			name: "GET请求",
			req: func() *http.Request {
				params := url.Values{}
				params.Set("query", query)
				params.Set("variables", `{"name":"Bob"}`)
				params.Set("operationName", "People")
				return httptest.NewRequest(http.MethodGet, "/graphql?"+params.Encode(), nil)
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, err := app.Test(c.req())
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			out := readBody(t, resp)
			assert.Nil(t, out["errors"])
			assert.Equal(t, map[string]interface{}{
				"people": []interface{}{map[string]interface{}{"name": "Bob"}},
			}, out["data"])
		})
	}
}

func TestExecutorErrors(t *testing.T) {
	app := newTestApp(t)
	cases := []struct {
		name    string
		req     *http.Request
		status  int
		message string
	}{
		{
			name:    "缺少查询语句",
			req:     httptest.NewRequest(http.MethodGet, "/graphql", nil),
			status:  http.StatusBadRequest,
			message: "缺少查询语句",
		},
		{
			name:    "变量格式错误",
			req:     httptest.NewRequest(http.MethodGet, "/graphql?query=%7Bpeople%7Bname%7D%7D&variables=%7Bx", nil),
			status:  http.StatusBadRequest,
			message: "变量格式错误",
		},
		{
			name:    "查询错误",
			req:     httptest.NewRequest(http.MethodGet, "/graphql?query=%7Bpeople(take%3A-1)%7Bname%7D%7D", nil),
			status:  http.StatusOK,
			message: "Argument `take` must not be negative.",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, err := app.Test(c.req)
			require.NoError(t, err)
			assert.Equal(t, c.status, resp.StatusCode)

			out := readBody(t, resp)
			errs, _ := out["errors"].([]interface{})
			require.NotEmpty(t, errs)
			assert.Equal(t, c.message, errs[0].(map[string]interface{})["message"])
		})
	}
}
