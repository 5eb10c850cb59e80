package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-transfer/migrations"
)

func TestDiscover_OrdersAndChecksums(t *testing.T) {
	dir := fstest.MapFS{
		"002_b.sql": {Data: []byte("SELECT 2;")},
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"README.md": {Data: []byte("ignored")},
		"010_c.sql": {Data: []byte("SELECT 10;")},
	}
	ms, err := discover(dir)
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, []string{"001", "002", "010"}, []string{ms[0].version, ms[1].version, ms[2].version})
	assert.Len(t, ms[0].checksum, 64)
	assert.NotEqual(t, ms[0].checksum, ms[1].checksum)
}

func TestDiscover_RejectsBadNames(t *testing.T) {
	_, err := discover(fstest.MapFS{"bad.sql": {Data: []byte("x")}})
	assert.Error(t, err)

	_, err = discover(fstest.MapFS{
		"001_a.sql": {Data: []byte("x")},
		"001_b.sql": {Data: []byte("y")},
	})
	assert.ErrorContains(t, err, "duplicate migration version 001")
}

func TestDiscover_EmbeddedMigrations(t *testing.T) {
	ms, err := discover(migrations.FS)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ms), 2)
	assert.Equal(t, "001_inventory_schema.sql", ms[0].filename)
	assert.Contains(t, ms[0].sql, "stock_transfers")
}
