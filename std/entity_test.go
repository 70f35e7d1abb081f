package std

import (
	"context"
	"testing"

	"github.com/ichaly/fluentgql/utl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdEncodeDecode(t *testing.T) {
	id := Id(123456789)
	token := id.Encode()
	assert.NotEmpty(t, token)
	assert.GreaterOrEqual(t, len(token), 6)

	var decoded Id
	require.NoError(t, decoded.Decode(token))
	assert.Equal(t, id, decoded)

	require.NoError(t, decoded.Decode("42"))
	assert.Equal(t, Id(42), decoded)

	assert.Equal(t, "", Id(0).Encode())
	assert.Error(t, decoded.Decode("!!"))
}

func TestIdJSON(t *testing.T) {
	type payload struct {
		Id  Id  `json:"id"`
		Ref *Id `json:"ref"`
	}
	data, err := utl.MarshalJSON(payload{Id: 7})
	require.NoError(t, err)

	var out payload
	require.NoError(t, utl.UnmarshalJSON(data, &out))
	assert.Equal(t, Id(7), out.Id)
	assert.Nil(t, out.Ref)

	require.NoError(t, utl.UnmarshalJSON([]byte(`{"id":99}`), &out))
	assert.Equal(t, Id(99), out.Id)
}

func TestIdScan(t *testing.T) {
	var id Id
	require.NoError(t, id.Scan(int64(5)))
	assert.Equal(t, Id(5), id)
	require.NoError(t, id.Scan([]byte("6")))
	assert.Equal(t, Id(6), id)
	assert.Error(t, id.Scan(1.5))

	v, err := Id(8).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)
}

func TestNextId(t *testing.T) {
	a, err := NextId()
	require.NoError(t, err)
	b, err := NextId()
	require.NoError(t, err)
	assert.Greater(t, b, a)

	v, err := NextID()
	require.NoError(t, err)
	assert.IsType(t, Id(0), v)
}

func TestSubjectContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, Subject(ctx))
	assert.Equal(t, ctx, WithSubject(ctx, ""))

	ctx = WithSubject(ctx, Id(15).Encode())
	assert.Equal(t, Id(15), CurrentUser(ctx))
}
