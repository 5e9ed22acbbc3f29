package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore persists the auth token between runs.
type TokenStore interface {
	// Token returns the stored token, or "" when there is none.
	Token() string
	Save(token string) error
	Clear() error
}

const tokenKey = "token"

// FileTokens keeps the token in a single file readable only by its owner.
type FileTokens struct {
	path string
}

func NewFileTokens(path string) *FileTokens {
	return &FileTokens{path}
}

// DefaultTokenPath is <user config dir>/geosurvey/token.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "geosurvey", tokenKey), nil
}

func (f *FileTokens) Token() string {
	b, err := os.ReadFile(f.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (f *FileTokens) Save(token string) error {
	err := os.MkdirAll(filepath.Dir(f.path), 0o700)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(token), 0o600)
}

func (f *FileTokens) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

type MemoryTokens struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokens) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *MemoryTokens) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokens) Clear() error {
	return m.Save("")
}
