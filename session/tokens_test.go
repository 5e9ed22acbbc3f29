package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	tokens := NewFileTokens(path)

	assert.Empty(t, tokens.Token())
	assert.NoError(t, tokens.Clear())

	require.NoError(t, tokens.Save("abc"))
	assert.Equal(t, "abc", tokens.Token())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, tokens.Clear())
	assert.Empty(t, tokens.Token())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
