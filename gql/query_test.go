package gql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type ageRange struct {
	Min int
	Max *int
}

func querySchema(t *testing.T) (*Schema, *counter) {
	t.Helper()
	db, c := newDB(t)
	return buildQuerySchema(t, db), c
}

func buildQuerySchema(t *testing.T, db *gorm.DB) *Schema {
	t.Helper()
	var people *Loader[person]
	units := NewLoader[unit]("UnitLoader", func(l *Loader[unit]) {
		l.Field("id")
		l.Field("name", Filterable(), Sortable())
		l.Field("code", Filterable())
		l.Field("members", HasMany(people, "ID", "UnitID"))
		l.Field("staff", HasMany(people, "ID", "UnitID"), AsConnection())
	})
	people = personLoader(units)
	ages := NewFilter("AgeRange", func(ctx context.Context, q *gorm.DB, r ageRange) *gorm.DB {
		q = q.Where("age >= ?", r.Min)
		if r.Max != nil {
			q = q.Where("age <= ?", *r.Max)
		}
		return q
	})
	s, err := NewSchemaBuilder(db, nil).Query(func(q *Root) {
		q.List(people, "people")
		q.List(people, "adults", WithFilter(ages))
		q.Connection(people, "peopleConnection")
		q.ByID(people, "person")
		q.List(units, "units")
	}).Build()
	require.NoError(t, err)
	return s
}

// names 取出列表中的 name
func names(t *testing.T, s *Schema, query string) []string {
	t.Helper()
	res := s.Do(context.Background(), Request{Query: query})
	require.Empty(t, res.Errors)
	var out []string
	for _, v := range res.Data.(map[string]interface{}) {
		for _, item := range v.([]interface{}) {
			out = append(out, item.(map[string]interface{})["name"].(string))
		}
	}
	return out
}

func TestFilter(t *testing.T) {
	s, _ := querySchema(t)
	cases := []struct {
		name   string
		filter string
		want   []string
	}{
		{name: "等于", filter: `{name: {eq: "Bob"}}`, want: []string{"Bob"}},
		{name: "不等于", filter: `{age: {neq: 30}}`, want: []string{"Bob", "Carol", "Dave", "Eve"}},
		{name: "包含于", filter: `{id: {in: [1, 3]}}`, want: []string{"Alice", "Carol"}},
		{name: "不包含于", filter: `{id: {nin: [1, 2, 3]}}`, want: []string{"Dave", "Eve"}},
		{name: "空的包含于", filter: `{age: {in: []}}`, want: nil},
		{name: "空的不包含于", filter: `{age: {nin: []}}`, want: []string{"Alice", "Bob", "Carol", "Dave", "Eve"}},
		{name: "区间", filter: `{age: {gt: 25, lte: 35}}`, want: []string{"Alice", "Eve"}},
		{name: "包含百分号", filter: `{email: {contains: "100%"}}`, want: []string{"Carol"}},
		{name: "包含下划线", filter: `{email: {contains: "_"}}`, want: []string{"Carol"}},
		{name: "前缀", filter: `{name: {startsWith: "Al"}}`, want: []string{"Alice"}},
		{name: "后缀", filter: `{name: {endsWith: "ve"}}`, want: []string{"Dave", "Eve"}},
		{name: "为空", filter: `{unitId: {isNull: true}}`, want: []string{"Eve"}},
		{name: "不为空", filter: `{unitId: {isNull: false}}`, want: []string{"Alice", "Bob", "Carol", "Dave"}},
		{name: "并且", filter: `{and: [{age: {gt: 20}}, {age: {lt: 35}}]}`, want: []string{"Alice", "Bob"}},
		{name: "或者", filter: `{or: [{name: {eq: "Alice"}}, {name: {eq: "Eve"}}]}`, want: []string{"Alice", "Eve"}},
		{name: "单个或者", filter: `{age: {gt: 0}, or: [{name: {eq: "Alice"}}]}`, want: []string{"Alice"}},
		{name: "取反", filter: `{not: {unitId: {isNull: true}}}`, want: []string{"Alice", "Bob", "Carol", "Dave"}},
		{name: "嵌套", filter: `{or: [{and: [{age: {gte: 30}}, {unitId: {eq: 1}}]}, {name: {eq: "Dave"}}]}`, want: []string{"Alice", "Dave"}},
		{name: "内联过滤", filter: `{minAge: 35}`, want: []string{"Carol", "Eve"}},
		{name: "内联过滤与或者", filter: `{or: [{minAge: 40}, {name: {eq: "Bob"}}]}`, want: []string{"Bob", "Carol"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, names(t, s, `{ people(filter: `+c.filter+`) { name } }`))
		})
	}
}

func TestCustomFilter(t *testing.T) {
	s, _ := querySchema(t)
	assert.Contains(t, s.GraphQL().TypeMap(), "InputAgeRange")
	assert.Equal(t, []string{"Alice", "Eve"}, names(t, s, `{ adults(filter: {min: 30, max: 40}) { name } }`))
	assert.Equal(t, []string{"Carol"}, names(t, s, `{ adults(filter: {min: 40}) { name } }`))
}

func TestSorting(t *testing.T) {
	s, _ := querySchema(t)
	cases := []struct {
		name    string
		sorting string
		want    []string
	}{
		{name: "降序", sorting: `[{field: "age", direction: DESC}]`, want: []string{"Carol", "Eve", "Alice", "Bob", "Dave"}},
		{name: "默认升序", sorting: `[{field: "age"}]`, want: []string{"Dave", "Bob", "Alice", "Eve", "Carol"}},
		{name: "名称降序", sorting: `[{field: "name", direction: DESC}]`, want: []string{"Eve", "Dave", "Carol", "Bob", "Alice"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, names(t, s, `{ people(sorting: `+c.sorting+`) { name } }`))
		})
	}

	assert.Equal(t, "Field `email` is not sortable.", failure(t, s, `{ people(sorting: [{field: "email"}]) { name } }`, nil))
}

func TestSearch(t *testing.T) {
	s, _ := querySchema(t)
	assert.Equal(t, []string{"Carol"}, names(t, s, `{ people(search: "  ar ") { name } }`))
	assert.Len(t, names(t, s, `{ people(search: "   ") { name } }`), 5)
}

func TestList(t *testing.T) {
	s, _ := querySchema(t)
	assert.Equal(t, []string{"Bob", "Carol"}, names(t, s, `{ people(take: 2, skip: 1) { name } }`))
	assert.Equal(t, []string(nil), names(t, s, `{ people(take: 2, skip: 10) { name } }`))
	assert.Equal(t, "Argument `take` must not be negative.", failure(t, s, `{ people(take: -1) { name } }`, nil))
	assert.Equal(t, "Argument `skip` must not be negative.", failure(t, s, `{ people(skip: -1) { name } }`, nil))
}

func TestByID(t *testing.T) {
	s, _ := querySchema(t)
	assert.JSONEq(t, `{"person":{"name":"Carol","age":41}}`, execute(t, s, `{ person(id: "3") { name age } }`, nil))
	assert.JSONEq(t, `{"person":null}`, execute(t, s, `{ person(id: "99") { name } }`, nil))
}

func TestConnection(t *testing.T) {
	s, _ := querySchema(t)
	page := func(t *testing.T, args string) map[string]interface{} {
		t.Helper()
		res := s.Do(context.Background(), Request{Query: `{ peopleConnection` + args + ` {
			totalCount
			items { name }
			edges { cursor node { name } }
			pageInfo { hasNextPage hasPreviousPage startCursor endCursor }
		} }`})
		require.Empty(t, res.Errors)
		return res.Data.(map[string]interface{})["peopleConnection"].(map[string]interface{})
	}
	itemNames := func(conn map[string]interface{}) []string {
		var out []string
		for _, item := range conn["items"].([]interface{}) {
			out = append(out, item.(map[string]interface{})["name"].(string))
		}
		return out
	}

	first := page(t, `(first: 2)`)
	info := first["pageInfo"].(map[string]interface{})
	edges := first["edges"].([]interface{})
	assert.EqualValues(t, 5, first["totalCount"])
	assert.Equal(t, []string{"Alice", "Bob"}, itemNames(first))
	assert.Equal(t, true, info["hasNextPage"])
	assert.Equal(t, false, info["hasPreviousPage"])
	require.Len(t, edges, 2)
	assert.Equal(t, edges[0].(map[string]interface{})["cursor"], info["startCursor"])
	assert.Equal(t, edges[1].(map[string]interface{})["cursor"], info["endCursor"])

	next := page(t, `(first: 2, after: "`+info["endCursor"].(string)+`")`)
	nextInfo := next["pageInfo"].(map[string]interface{})
	assert.Equal(t, []string{"Carol", "Dave"}, itemNames(next))
	assert.Equal(t, true, nextInfo["hasNextPage"])
	assert.Equal(t, true, nextInfo["hasPreviousPage"])

	last := page(t, `(last: 2)`)
	lastInfo := last["pageInfo"].(map[string]interface{})
	assert.Equal(t, []string{"Dave", "Eve"}, itemNames(last))
	assert.Equal(t, false, lastInfo["hasNextPage"])
	assert.Equal(t, true, lastInfo["hasPreviousPage"])

	dave := next["edges"].([]interface{})[1].(map[string]interface{})["cursor"].(string)
	before := page(t, `(last: 2, before: "`+dave+`")`)
	assert.Equal(t, []string{"Bob", "Carol"}, itemNames(before))

	empty := page(t, `(first: 0)`)
	emptyInfo := empty["pageInfo"].(map[string]interface{})
	assert.Nil(t, itemNames(empty))
	assert.Nil(t, emptyInfo["startCursor"])
	assert.Nil(t, emptyInfo["endCursor"])

	all := page(t, ``)
	assert.Len(t, itemNames(all), 5)
	assert.Equal(t, false, all["pageInfo"].(map[string]interface{})["hasNextPage"])
}

func TestConnectionErrors(t *testing.T) {
	s, _ := querySchema(t)
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{name: "负数first", query: `{ peopleConnection(first: -1) { totalCount } }`, want: "Argument `first` must not be negative."},
		{name: "负数last", query: `{ peopleConnection(last: -2) { totalCount } }`, want: "Argument `last` must not be negative."},
		{name: "非法游标", query: `{ peopleConnection(after: "zzz") { totalCount } }`, want: "Invalid cursor `zzz`."},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, failure(t, s, c.query, nil))
		})
	}
}

func TestConnectionFilter(t *testing.T) {
	s, c := querySchema(t)
	c.reset()
	assert.JSONEq(t, `{"peopleConnection":{"totalCount":2,"items":[{"name":"Carol"}]}}`,
		execute(t, s, `{ peopleConnection(first: 1, filter: {unitId: {eq: 2}}, sorting: [{field: "age", direction: DESC}]) { totalCount items { name } } }`, nil))
	assert.Equal(t, 2, c.value())

	c.reset()
	execute(t, s, `{ peopleConnection(first: 1) { items { name } } }`, nil)
	assert.Equal(t, 1, c.value())
}

func TestHasMany(t *testing.T) {
	s, c := querySchema(t)
	c.reset()
	assert.JSONEq(t, `{"units":[
		{"name":"研发部","members":[{"name":"Alice"},{"name":"Bob"}]},
		{"name":"市场部","members":[{"name":"Carol"},{"name":"Dave"}]},
		{"name":"空部门","members":[]}
	]}`, execute(t, s, `{ units { name members { name } } }`, nil))
	assert.Equal(t, 2, c.value())

	assert.JSONEq(t, `{"units":[
		{"name":"研发部","members":[{"name":"Bob"},{"name":"Alice"}]},
		{"name":"市场部","members":[{"name":"Carol"}]},
		{"name":"空部门","members":[]}
	]}`, execute(t, s, `{ units { name members(filter: {age: {gt: 20}}, sorting: [{field: "age"}]) { name } } }`, nil))
}

func TestHasManyConnection(t *testing.T) {
	s, c := querySchema(t)
	c.reset()
	assert.JSONEq(t, `{"units":[
		{"name":"研发部","staff":{"totalCount":2,"items":[{"name":"Alice"}],"pageInfo":{"hasNextPage":true}}},
		{"name":"市场部","staff":{"totalCount":2,"items":[{"name":"Carol"}],"pageInfo":{"hasNextPage":true}}},
		{"name":"空部门","staff":{"totalCount":0,"items":[],"pageInfo":{"hasNextPage":false}}}
	]}`, execute(t, s, `{ units { name staff(first: 1) { totalCount items { name } pageInfo { hasNextPage } } } }`, nil))
	assert.Equal(t, 2, c.value())
}

func TestBelongsTo(t *testing.T) {
	s, c := querySchema(t)
	c.reset()
	assert.JSONEq(t, `{"people":[
		{"name":"Alice","unit":{"name":"研发部"},"manager":null},
		{"name":"Bob","unit":{"name":"研发部"},"manager":{"name":"Alice"}},
		{"name":"Carol","unit":{"name":"市场部"},"manager":{"name":"Alice"}},
		{"name":"Dave","unit":{"name":"市场部"},"manager":null},
		{"name":"Eve","unit":null,"manager":null}
	]}`, execute(t, s, `{ people { name unit { name } manager { name } } }`, nil))
	assert.Equal(t, 3, c.value())
}

func TestSecurity(t *testing.T) {
	db, _ := newDB(t)
	var people *Loader[person]
	units := NewLoader[unit]("UnitLoader", func(l *Loader[unit]) {
		l.Field("name")
		l.Field("members", HasMany(people, "ID", "UnitID"))
	})
	people = NewLoader[person]("PersonLoader", func(l *Loader[person]) {
		l.Security(func(ctx context.Context, q *gorm.DB) *gorm.DB {
			return q.Where("age < ?", 40)
		})
		l.Field("name", Filterable())
	})
	s, err := NewSchemaBuilder(db, nil).Query(func(q *Root) {
		q.List(units, "units")
		q.List(people, "people")
		q.ByID(people, "person")
	}).Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice", "Bob", "Dave", "Eve"}, names(t, s, `{ people { name } }`))
	assert.Empty(t, names(t, s, `{ people(filter: {name: {eq: "Carol"}}) { name } }`))
	assert.JSONEq(t, `{"person":null}`, execute(t, s, `{ person(id: "3") { name } }`, nil))
	assert.JSONEq(t, `{"units":[
		{"name":"研发部","members":[{"name":"Alice"},{"name":"Bob"}]},
		{"name":"市场部","members":[{"name":"Dave"}]},
		{"name":"空部门","members":[]}
	]}`, execute(t, s, `{ units { name members { name } } }`, nil))
}

func TestSortByComputed(t *testing.T) {
	db, _ := newDB(t)
	people := NewLoader[person]("PersonLoader", func(l *Loader[person]) {
		l.Field("name")
		l.Field("nameLength",
			Resolve(func(ctx context.Context, p *person) (int, error) { return len(p.Name), nil }),
			SortBy(func(ctx context.Context, q *gorm.DB, dir SortDirection) *gorm.DB {
				return q.Order("LENGTH(name) " + string(dir))
			}),
		)
	})
	s, err := NewSchemaBuilder(db, nil).Query(func(q *Root) {
		q.List(people, "people")
		q.Connection(people, "peopleConnection")
	}).Build()
	require.NoError(t, err)

	cases := []struct {
		name    string
		sorting string
		want    []string
	}{
		{name: "升序后按主键", sorting: `[{field: "nameLength"}]`, want: []string{"Bob", "Eve", "Dave", "Alice", "Carol"}},
		{name: "降序后按主键", sorting: `[{field: "nameLength", direction: DESC}]`, want: []string{"Alice", "Carol", "Dave", "Bob", "Eve"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, names(t, s, `{ people(sorting: `+c.sorting+`) { name } }`))
		})
	}
	assert.JSONEq(t, `{"peopleConnection":{"items":[{"name":"Bob","nameLength":3},{"name":"Eve","nameLength":3}]}}`,
		execute(t, s, `{ peopleConnection(first: 2, sorting: [{field: "nameLength"}]) { items { name nameLength } } }`, nil))
}

func TestPayloadField(t *testing.T) {
	db, _ := newDB(t)
	s, err := NewSchemaBuilder(db, nil).Query(func(q *Root) {
		q.Field("older", Payload(func(ctx context.Context, r ageRange) ([]string, error) {
			var out []string
			tx := db.WithContext(ctx).Model(&person{}).Where("age >= ?", r.Min)
			if r.Max != nil {
				tx = tx.Where("age <= ?", *r.Max)
			}
			return out, tx.Order("id").Pluck("name", &out).Error
		}))
	}).Build()
	require.NoError(t, err)

	field := s.GraphQL().QueryType().Fields()["older"]
	require.Len(t, field.Args, 1)
	assert.Equal(t, PAYLOAD, field.Args[0].Name())
	assert.Equal(t, "InputOlderPayload!", field.Args[0].Type.String())

	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "下限", payload: `{min: 35}`, want: `["Carol","Eve"]`},
		{name: "区间", payload: `{min: 20, max: 30}`, want: `["Alice","Bob"]`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.JSONEq(t, `{"older":`+c.want+`}`, execute(t, s, `{ older(payload: `+c.payload+`) }`, nil))
		})
	}
	assert.Contains(t, failure(t, s, `{ older }`, nil), "payload")
}
