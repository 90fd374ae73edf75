package sqlite

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyIntegrityHealthy(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "healthy.db")

	db, err := Open(dbPath, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	for _, mode := range []string{"quick", "full"} {
		issues, err := VerifyIntegrity(dbPath, mode)
		require.NoError(t, err)
		assert.Nil(t, issues, "mode %q reported issues on a healthy database", mode)
	}
}

func TestVerifyIntegrityDetectsCorruption(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corruptible.db")

	db, err := Open(dbPath, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)")
	require.NoError(t, err)
	// Fill a few pages so there is something past the header to damage.
	padding := strings.Repeat("A", 256)
	for i := 0; i < 100; i++ {
		_, err = db.Exec("INSERT INTO t (data) VALUES (?)", padding)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0o644)
	require.NoError(t, err)
	garbage := make([]byte, 100)
	_, _ = rand.Read(garbage)
	_, err = f.WriteAt(garbage, 4096)
	require.NoError(t, f.Close())
	require.NoError(t, err)

	issues, err := VerifyIntegrity(dbPath, "full")
	require.NoError(t, err, "corruption must surface as issues, not a system error")
	assert.NotEmpty(t, issues, "full integrity check missed page-level corruption")
}
