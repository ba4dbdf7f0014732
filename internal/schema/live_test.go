package schema

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLive(t *testing.T) {
	t.Parallel()

	l, err := ParseLive([]byte(`{"temperature": 23.2, "active": false, "device": "AmberRoomTemp"}`))
	require.NoError(t, err)

	assert.Equal(t, []Field{
		{Name: "temperature", Type: Float},
		{Name: "active", Type: Boolean},
		{Name: "device", Type: Text},
	}, l.Fields())
	assert.Equal(t, []any{23.2, false, "AmberRoomTemp"}, l.Values())
	assert.Equal(t, 3, l.Len())
}

func TestParseLiveNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		wantType  Type
		wantValue any
	}{
		{in: `{"n": 23}`, wantType: Integer, wantValue: int64(23)},
		{in: `{"n": -1}`, wantType: Integer, wantValue: int64(-1)},
		{in: `{"n": 0}`, wantType: Integer, wantValue: int64(0)},
		{in: `{"n": 9223372036854775807}`, wantType: Integer, wantValue: int64(9223372036854775807)},
		{in: `{"n": 1.5}`, wantType: Float, wantValue: 1.5},
		{in: `{"n": -0.25}`, wantType: Float, wantValue: -0.25},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			l, err := ParseLive([]byte(tt.in))
			require.NoError(t, err)
			require.Equal(t, 1, l.Len())

			s := l.Samples()[0]
			assert.Equal(t, tt.wantType, s.Field.Type)
			assert.Equal(t, tt.wantValue, s.Value)
		})
	}
}

func TestParseLiveEmptyObject(t *testing.T) {
	t.Parallel()

	l, err := ParseLive([]byte(`{}`))
	require.NoError(t, err)
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Fields())
}

func TestParseLiveFieldsAreNotNullable(t *testing.T) {
	t.Parallel()

	l, err := ParseLive([]byte(`{"a": 1, "b": "x", "c": true, "d": 0.5}`))
	require.NoError(t, err)
	for _, f := range l.Fields() {
		assert.False(t, f.Nullable, "field %q", f.Name)
	}
}

func TestParseLivePreservesKeyOrder(t *testing.T) {
	t.Parallel()

	l, err := ParseLive([]byte(`{"zeta": 1, "alpha": 2, "mid": 3}`))
	require.NoError(t, err)

	var names []string
	for _, f := range l.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestParseLiveUnimplementedValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "null", in: `{"a": 1, "b": null}`},
		{name: "array", in: `{"a": [1, 2]}`},
		{name: "object", in: `{"a": {"b": 1}}`},
		{name: "empty array", in: `{"a": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := ParseLive([]byte(tt.in))
			require.ErrorIs(t, err, ErrUnimplementedConversion)
			assert.Zero(t, l.Len())
		})
	}
}

func TestParseLiveDuplicateKey(t *testing.T) {
	t.Parallel()

	_, err := ParseLive([]byte(`{"a": 1, "a": "x"}`))
	require.ErrorIs(t, err, ErrDuplicateField)
}

func TestParseLiveMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "array document", in: `[{"a": 1}]`},
		{name: "scalar document", in: `42`},
		{name: "null document", in: `null`},
		{name: "empty input", in: ``},
		{name: "truncated", in: `{"a": 1`},
		{name: "trailing object", in: `{"a": 1} {"b": 2}`},
		{name: "trailing garbage", in: `{"a": 1} x`},
		{name: "missing colon", in: `{"a" 1}`},
		{name: "missing comma", in: `{"a":1 "b":2}`},
		{name: "doubled comma", in: `{"a":1,,"b":2}`},
		{name: "mismatched close", in: `{"a":1]`},
		{name: "missing colon and comma", in: `{"a": "x" "b" true}`},
		{name: "trailing comma", in: `{"a":1,}`},
		{name: "empty key", in: `{"": 1}`},
		{name: "empty key after field", in: `{"a": 1, "": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseLive([]byte(tt.in))
			require.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestLiveSchemaJSON(t *testing.T) {
	t.Parallel()

	l, err := ParseLive([]byte(`{"temperature": 23.2, "count": 3, "device": "AmberRoomTemp"}`))
	require.NoError(t, err)

	b, err := json.Marshal(l)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"name":"temperature","type":"float","nullable":false,"value":23.2},
		{"name":"count","type":"integer","nullable":false,"value":3},
		{"name":"device","type":"text","nullable":false,"value":"AmberRoomTemp"}
	]`, string(b))

	var envelope struct {
		Sample LiveSchema `json:"sample"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"sample":{"active":true}}`), &envelope))
	assert.Equal(t, []Field{{Name: "active", Type: Boolean}}, envelope.Sample.Fields())
}

func BenchmarkParseLive(b *testing.B) {
	in := []byte(`{"temperature": 23.2, "active": false, "device": "AmberRoomTemp", "count": 17}`)
	var sink LiveSchema
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		l, err := ParseLive(in)
		if err != nil {
			b.Fatal(err)
		}
		sink = l
	}
	_ = sink
}
