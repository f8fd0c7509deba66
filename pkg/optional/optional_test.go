package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type carPatch struct {
	ID             int64           `json:"id"`
	Make           Field[string]   `json:"make"`
	Color          Field[*string]  `json:"color"`
	CurrentMileage Field[int]      `json:"current_mileage"`
	Tags           Field[[]string] `json:"tags"`
}

func TestField_UnmarshalJSON(t *testing.T) {
	t.Run("omitted fields stay absent", func(t *testing.T) {
		var p carPatch
		require.NoError(t, json.Unmarshal([]byte(`{"id":5,"current_mileage":9}`), &p))

		assert.False(t, p.Make.Present())
		assert.False(t, p.Color.Present())
		mileage, ok := p.CurrentMileage.Value()
		assert.True(t, ok)
		assert.Equal(t, 9, mileage)
	})

	t.Run("null clears a nilable field", func(t *testing.T) {
		var p carPatch
		require.NoError(t, json.Unmarshal([]byte(`{"id":5,"color":null,"tags":null}`), &p))

		assert.True(t, p.Color.Present())
		assert.Nil(t, p.Color.Get())
		assert.True(t, p.Tags.Present())
		assert.Nil(t, p.Tags.Get())
	})

	t.Run("value sets a nilable field", func(t *testing.T) {
		var p carPatch
		require.NoError(t, json.Unmarshal([]byte(`{"color":"red"}`), &p))
		require.NotNil(t, p.Color.Get())
		assert.Equal(t, "red", *p.Color.Get())
	})

	t.Run("null on a required field is rejected", func(t *testing.T) {
		var p carPatch
		err := json.Unmarshal([]byte(`{"make":null}`), &p)
		assert.ErrorContains(t, err, "null is not allowed")
	})

	t.Run("type mismatch", func(t *testing.T) {
		var p carPatch
		assert.Error(t, json.Unmarshal([]byte(`{"current_mileage":"lots"}`), &p))
	})
}

func TestField_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(carPatch{ID: 1, Make: Some("Kia")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"make":"Kia","color":null,"current_mileage":null,"tags":null}`, string(out))
}

func TestField_ValidationValue(t *testing.T) {
	red := "red"

	assert.Nil(t, None[string]().ValidationValue(), "absent")
	assert.Nil(t, Some[*string](nil).ValidationValue(), "null pointer")
	assert.Nil(t, Some[[]string](nil).ValidationValue(), "nil slice")

	v, ok := Some("Kia").ValidationValue().(*string)
	require.True(t, ok, "values are exposed through a pointer")
	assert.Equal(t, "Kia", *v)

	zero, ok := Some(0).ValidationValue().(*int)
	require.True(t, ok)
	assert.Equal(t, 0, *zero)

	assert.Same(t, &red, Some(&red).ValidationValue())
	assert.Equal(t, []string{}, Some([]string{}).ValidationValue())
}

func TestField_Or(t *testing.T) {
	assert.Equal(t, 30, None[int]().Or(30))
	assert.Equal(t, 0, Some(0).Or(30))
}
