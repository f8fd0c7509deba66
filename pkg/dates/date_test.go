package dates

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2024-02-29", want: New(2024, time.February, 29)},
		{in: " 2024-01-05 ", want: New(2024, time.January, 5)},
		{in: "2024-01-05T23:30:00+02:00", want: New(2024, time.January, 5)},
		{in: "2023-02-29", wantErr: true},
		{in: "05/01/2024", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate_JSON(t *testing.T) {
	type row struct {
		Due  Date  `json:"due"`
		Next *Date `json:"next"`
	}

	var r row
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2025-03-01","next":null}`), &r))
	assert.Equal(t, "2025-03-01", r.Due.String())
	assert.Nil(t, r.Next)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2025-03-01","next":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"due":20250301}`), &r))
}

func TestDate_Arithmetic(t *testing.T) {
	d := New(2024, time.December, 30)
	assert.Equal(t, "2025-01-02", d.AddDays(3).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.False(t, d.Before(d))
}

func TestDate_PG(t *testing.T) {
	var d Date
	require.NoError(t, d.ScanDate(pgtype.Date{Time: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Valid: true}))
	assert.Equal(t, "2024-06-01", d.String())

	v, err := d.DateValue()
	require.NoError(t, err)
	assert.True(t, v.Valid)

	require.NoError(t, d.ScanDate(pgtype.Date{}))
	assert.True(t, d.IsZero())

	assert.Error(t, d.ScanDate(pgtype.Date{Valid: true, InfinityModifier: pgtype.Infinity}))
}
