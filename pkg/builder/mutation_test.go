package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertQuery_ToSQL(t *testing.T) {
	db := New(nil)

	t.Run("skips serial key and zero defaults but keeps false booleans", func(t *testing.T) {
		sql, args, err := Insert[TestCar](db).
			Values(TestCar{OwnerID: 1, Make: "Honda", Year: 2020}).
			Returning("*").
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO test_car (owner_id, make, year, color, is_active) VALUES ($1, $2, $3, $4, $5) RETURNING *", sql)
		require.Len(t, args, 5)
		assert.Equal(t, false, args[4])
	})

	t.Run("explicit value overrides default", func(t *testing.T) {
		at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		sql, args, err := Insert[TestCar](db).
			Values(TestCar{OwnerID: 1, Make: "Kia", Year: 2019, IsActive: true, CreatedAt: at}).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO test_car (owner_id, make, year, color, is_active, created_at) VALUES ($1, $2, $3, $4, $5, $6)", sql)
		assert.Equal(t, at, args[5])
	})

	t.Run("multiple rows", func(t *testing.T) {
		sql, args, err := Insert[TestCar](db).
			Values(TestCar{OwnerID: 1, Make: "A", Year: 1}, TestCar{OwnerID: 2, Make: "B", Year: 2}).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO test_car (owner_id, make, year, color, is_active) VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10)", sql)
		assert.Len(t, args, 10)
	})

	t.Run("rows with different column sets", func(t *testing.T) {
		_, _, err := Insert[TestCar](db).
			Values(TestCar{Make: "A"}, TestCar{Make: "B", CreatedAt: time.Now()}).
			ToSQL()
		assert.Error(t, err)
	})

	t.Run("on conflict do nothing", func(t *testing.T) {
		sql, _, err := Insert[TestCar](db).Values(TestCar{Make: "A"}).OnConflictDoNothing().ToSQL()
		require.NoError(t, err)
		assert.Contains(t, sql, " ON CONFLICT DO NOTHING")

		sql, _, err = Insert[TestCar](db).
			Values(TestCar{Make: "A"}).
			OnConflictDoNothing("owner_id", "make").
			Returning("id").
			ToSQL()
		require.NoError(t, err)
		assert.Contains(t, sql, " ON CONFLICT (owner_id, make) DO NOTHING RETURNING id")
	})

	t.Run("no values", func(t *testing.T) {
		_, _, err := Insert[TestCar](db).ToSQL()
		assert.Error(t, err)
	})
}

func TestUpdateQuery_ToSQL(t *testing.T) {
	db := New(nil)

	t.Run("assignments keep call order", func(t *testing.T) {
		sql, args, err := Update[TestCar](db).
			Set("make", "Toyota").
			SetIf(false, "color", "red").
			SetExpr("year", "year + ?", 1).
			Where(Eq("id", 7)).
			Returning("*").
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE test_car SET make = $1, year = year + $2 WHERE id = $3 RETURNING *", sql)
		assert.Equal(t, []any{"Toyota", 1, 7}, args)
	})

	t.Run("setting a column twice keeps its slot", func(t *testing.T) {
		q := Update[TestCar](db).Set("make", "a").Set("year", 1).Set("make", "b").Where(Eq("id", 1))
		sql, args, err := q.ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE test_car SET make = $1, year = $2 WHERE id = $3", sql)
		assert.Equal(t, []any{"b", 1, 1}, args)
	})

	t.Run("guarded counter", func(t *testing.T) {
		sql, _, err := Update[TestCar](db).
			SetExpr("year", "year + 1").
			Where(Eq("id", 3), Expr("year < ?", 2030)).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE test_car SET year = year + 1 WHERE id = $1 AND year < $2", sql)
	})

	t.Run("nothing to set", func(t *testing.T) {
		q := Update[TestCar](db).SetIf(false, "make", "x")
		assert.False(t, q.HasSets())
		_, _, err := q.ToSQL()
		assert.Error(t, err)
	})
}

func TestDeleteQuery_ToSQL(t *testing.T) {
	db := New(nil)

	sql, args, err := Delete[TestCar](db).Where(Eq("id", 4)).Returning("id").ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM test_car WHERE id = $1 RETURNING id", sql)
	assert.Equal(t, []any{4}, args)

	_, _, err = Delete[TestCar](db).ToSQL()
	assert.Error(t, err, "unconditional delete must be refused")
}
