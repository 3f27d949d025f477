package migration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add payments index", "add_payments_index"},
		{"Add-Mora-Snapshots", "add_mora_snapshots"},
		{"add__reading__flags", "add_reading_flags"},
		{"   spaces   ", "spaces"},
		{"tarifa 2025!", "tarifa_2025"},
		{"_leading_and_trailing_", "leading_and_trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 3, 4, 10, 11, 12, 0, time.UTC)

	mf, err := CreateMigration(dir, "Add meter brand", "Track meter manufacturer", at)
	require.NoError(t, err)

	assert.Equal(t, "20250304101112", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20250304101112_add_meter_brand.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20250304101112_add_meter_brand.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_meter_brand")
	assert.Contains(t, string(up), "Track meter manufacturer")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")

	_, err = CreateMigration(dir, "Add meter brand", "", at)
	assert.Error(t, err, "same version and name must not overwrite")

	_, err = CreateMigration(dir, "!!!", "", at)
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"20250201000000_second.up.sql",
		"20250201000000_second.down.sql",
		"20250101000000_first.up.sql",
		"20250101000000_first.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.up.sql"), 0o755))

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"20250101000000_first", "20250201000000_second"}, names)

	names, err = ListMigrations(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMigrations_RepositorySchema(t *testing.T) {
	names, err := ListMigrations(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "20250106090000_create_billing_schema", names[0])
}
