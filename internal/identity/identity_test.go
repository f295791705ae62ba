package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateServerUUID_CreatesAndPersists(t *testing.T) {
	dir := t.TempDir()

	id1, err := LoadOrCreateServerUUID(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, id1)

	id2, err := LoadOrCreateServerUUID(dir)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "a second call against the same cache dir must reuse the persisted uuid")
}

func TestLoadOrCreateServerUUID_IgnoresBlankExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server_uuid"), []byte("  \n"), 0o644))

	id, err := LoadOrCreateServerUUID(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestHostname_NeverEmpty(t *testing.T) {
	assert.NotEmpty(t, Hostname())
}
