package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name  string `split_words:"true" default:"anonymous"`
	Limit int    `split_words:"true" default:"5"`
}

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewLoadsEnvFile(t *testing.T) {
	path := writeEnvFile(t, "CFGTEST_NAME=notes\nCFGTEST_LIMIT=9\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("CFGTEST_NAME")
		_ = os.Unsetenv("CFGTEST_LIMIT")
	})

	conf, err := New[testConfig]("CFGTEST", WithEnvFile(path))
	require.NoError(t, err)
	assert.Equal(t, "notes", conf.Name)
	assert.Equal(t, 9, conf.Limit)
}

func TestNewKeepsExistingEnvironment(t *testing.T) {
	t.Setenv("CFGKEEP_LIMIT", "3")
	path := writeEnvFile(t, "CFGKEEP_LIMIT=9\n")

	conf, err := New[testConfig]("CFGKEEP", WithEnvFile(path))
	require.NoError(t, err)
	assert.Equal(t, 3, conf.Limit)
	assert.Equal(t, "anonymous", conf.Name)
}

func TestNewMissingEnvFile(t *testing.T) {
	_, err := New[testConfig]("CFGMISSING", WithEnvFile(filepath.Join(t.TempDir(), "nope.env")))
	require.Error(t, err)
}
