package gql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 使用真实数据库验证生成的SQL，需要docker
func TestDialects(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}
	cases := []struct {
		name  string
		req   testcontainers.ContainerRequest
		port  string
		delay time.Duration
		open  func(host string, port int) gorm.Dialector
	}{
		{
			name: "PostgreSQL",
			req: testcontainers.ContainerRequest{
				Image:        "docker.io/library/postgres:16",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "test",
					"POSTGRES_PASSWORD": "test",
					"POSTGRES_DB":       "test",
				},
				WaitingFor: wait.ForAll(
					wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
					wait.ForListeningPort("5432/tcp"),
				),
			},
			port:  "5432",
			delay: 2 * time.Second,
			open: func(host string, port int) gorm.Dialector {
				return postgres.Open(fmt.Sprintf("host=%s port=%d user=test password=test dbname=test sslmode=disable", host, port))
			},
		},
		{
			name: "MySQL",
			req: testcontainers.ContainerRequest{
				Image:        "docker.io/library/mysql:8.0",
				ExposedPorts: []string{"3306/tcp"},
				Env: map[string]string{
					"MYSQL_ROOT_PASSWORD": "test",
					"MYSQL_DATABASE":      "test",
					"MYSQL_USER":          "test",
					"MYSQL_PASSWORD":      "test",
				},
				WaitingFor: wait.ForAll(
					wait.ForLog("MySQL Community Server - GPL"),
					wait.ForListeningPort("3306/tcp"),
				),
			},
			port:  "3306",
			delay: 10 * time.Second,
			open: func(host string, port int) gorm.Dialector {
				return mysql.Open(fmt.Sprintf("test:test@tcp(%s:%d)/test?charset=utf8mb4&parseTime=True&loc=Local", host, port))
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
				ContainerRequest: c.req,
				Started:          true,
			})
			require.NoError(t, err)
			defer container.Terminate(ctx)

			// 等待数据库完全就绪
			time.Sleep(c.delay)

			host, err := container.Host(ctx)
			require.NoError(t, err)
			port, err := container.MappedPort(ctx, c.port)
			require.NoError(t, err)
			db, err := gorm.Open(c.open(host, port.Int()), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
			require.NoError(t, err)
			seed(t, db)

			runDialect(t, buildQuerySchema(t, db))
		})
	}
}

func runDialect(t *testing.T, s *Schema) {
	filters := []struct {
		filter string
		want   []string
	}{
		{filter: `{email: {contains: "100%"}}`, want: []string{"Carol"}},
		{filter: `{email: {contains: "_"}}`, want: []string{"Carol"}},
		{filter: `{age: {in: []}}`, want: nil},
		{filter: `{unitId: {isNull: true}}`, want: []string{"Eve"}},
		{filter: `{or: [{minAge: 40}, {name: {eq: "Bob"}}]}`, want: []string{"Bob", "Carol"}},
		{filter: `{not: {id: {nin: [1, 2]}}}`, want: []string{"Alice", "Bob"}},
	}
	for _, f := range filters {
		assert.Equal(t, f.want, names(t, s, `{ people(filter: `+f.filter+`) { name } }`), f.filter)
	}
	assert.Equal(t, []string{"Carol", "Eve", "Alice", "Bob", "Dave"},
		names(t, s, `{ people(sorting: [{field: "age", direction: DESC}]) { name } }`))
	assert.JSONEq(t, `{"peopleConnection":{"totalCount":5,"items":[{"name":"Dave"},{"name":"Eve"}]}}`,
		execute(t, s, `{ peopleConnection(last: 2) { totalCount items { name } } }`, nil))
	assert.JSONEq(t, `{"units":[
		{"name":"研发部","members":[{"name":"Alice"},{"name":"Bob"}]},
		{"name":"市场部","members":[{"name":"Carol"},{"name":"Dave"}]},
		{"name":"空部门","members":[]}
	]}`, execute(t, s, `{ units { name members { name } } }`, nil))
}
