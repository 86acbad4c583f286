package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGetCaseInsensitive(t *testing.T) {
	rec := Record{"sAMAccountName": StringValue("jdoe")}

	v, ok := rec.Get("samaccountname")
	require.True(t, ok)
	assert.Equal(t, "jdoe", v.String())

	v, ok = rec.Get("SAMACCOUNTNAME")
	require.True(t, ok)
	assert.Equal(t, "jdoe", v.String())

	_, ok = rec.Get("missing")
	assert.False(t, ok)

	assert.True(t, rec.Has("Samaccountname"))
}

func TestValueIsEmpty(t *testing.T) {
	assert.True(t, StringValue("").IsEmpty())
	assert.False(t, StringValue("x").IsEmpty())
	assert.True(t, ListValue().IsEmpty())
	assert.False(t, ListValue("a").IsEmpty())
	assert.False(t, IntValue(0).IsEmpty())
}

func TestRecordJSON(t *testing.T) {
	// The REST layer round-trips records as plain JSON objects, so a user
	// payload decodes into typed values and encodes back to natural JSON.
	payload := `{
		"dn": "cn=newuser,ou=users,dc=example,dc=com",
		"sAMAccountName": "newuser",
		"uidNumber": 2000,
		"memberOf": ["Users", "Developers"]
	}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))

	n, isInt := rec["uidNumber"].Int()
	assert.True(t, isInt)
	assert.Equal(t, int64(2000), n)
	assert.Equal(t, KindList, rec["memberOf"].Kind())
	assert.Equal(t, []string{"Users", "Developers"}, rec["memberOf"].Strings())
	assert.Equal(t, KindString, rec["dn"].Kind())

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, float64(2000), decoded["uidNumber"])
	assert.Equal(t, []interface{}{"Users", "Developers"}, decoded["memberOf"])

	var bad Record
	err = json.Unmarshal([]byte(`{"memberOf": [1, 2]}`), &bad)
	assert.Error(t, err)
}
