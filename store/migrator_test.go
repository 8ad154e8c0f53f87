package store

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldApplyMigration(t *testing.T) {
	tests := []struct {
		fileVersion    string
		currentVersion string
		targetVersion  string
		want           bool
	}{
		{"0.3", "0.2.0", "0.3.1", true},
		{"0.3", "0.3.1", "0.3.2", false},
		{"0.3", "0.0.0", "0.3.1", true},
		{"0.4", "0.3.1", "0.3.2", false},
		{"0.3", "0.2.0", "0.3.0", true},
		{"0.3", "0.3.0", "0.3.1", false},
	}
	for _, test := range tests {
		got := shouldApplyMigration(test.fileVersion, test.currentVersion, test.targetVersion)
		require.Equal(t, test.want, got,
			"file %s, current %s, target %s", test.fileVersion, test.currentVersion, test.targetVersion)
	}
}

func TestMigrationFilesEmbedded(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres"} {
		_, err := migrationFS.ReadFile("migration/" + driver + "/" + LatestSchemaFileName)
		require.NoError(t, err, "latest schema for %s", driver)

		filePaths, err := fs.Glob(migrationFS, "migration/"+driver+"/*/*.sql")
		require.NoError(t, err)
		require.NotEmpty(t, filePaths, "incremental migrations for %s", driver)
	}
}
