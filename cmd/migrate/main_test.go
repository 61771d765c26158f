package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_transactions.sql", true, 1, "create_transactions"},
		{"0042_add_index.sql", true, 42, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseFilename(tt.filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	write("0002_budgets.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.budgets` (x INT64);")
	write("0001_transactions.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.transactions` (x INT64);")
	write("README.md", "notes")

	migrations, skipped, err := readMigrations(dir, "proj", "ds")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, skipped)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "CREATE TABLE `proj.ds.transactions` (x INT64);", migrations[0].SQL)

	// Checksums ignore the rendered project and dataset.
	again, _, err := readMigrations(dir, "other", "other")
	require.NoError(t, err)
	assert.Equal(t, migrations[0].Checksum, again[0].Checksum)
	assert.NotEqual(t, migrations[0].Checksum, migrations[1].Checksum)
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_a.sql"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_b.sql"), []byte("b"), 0o600))

	_, _, err := readMigrations(dir, "p", "d")
	assert.ErrorContains(t, err, "duplicate migration version 0001")
}

func TestRepositoryMigrationsAreWellFormed(t *testing.T) {
	dir, err := findDir("migrations/bigquery")
	require.NoError(t, err)

	migrations, skipped, err := readMigrations(dir, "proj", "ds")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.NotEmpty(t, migrations)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, m.Filename)
		assert.NotContains(t, m.SQL, "{{")
	}
}

func TestPlan(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "c1"},
		{Version: 2, Checksum: "old"},
	}

	pending, changed := plan(migrations, applied)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Version)
	require.Len(t, changed, 1)
	assert.Equal(t, 2, changed[0].Version)
}
