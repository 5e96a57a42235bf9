package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "sst_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// overrideConfigPath points the config loader at a file under t.TempDir and
// restores the real resolver on cleanup.
func overrideConfigPath(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scansight")
	path := filepath.Join(dir, "config.json")

	oldDir, oldPath := getConfigDirFunc, getConfigPathFunc
	getConfigDirFunc = func() (string, error) { return dir, nil }
	getConfigPathFunc = func() (string, error) { return path, nil }
	t.Cleanup(func() {
		getConfigDirFunc, getConfigPathFunc = oldDir, oldPath
	})
	return path
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, "scansight", filepath.Base(dir))
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "config.json", filepath.Base(path))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	overrideConfigPath(t)

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadGlobalConfig_ValidFile(t *testing.T) {
	path := overrideConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	want := GlobalConfig{APIToken: testToken, APIURL: "http://localhost:8080"}
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, want, *cfg)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	path := overrideConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{invalid json}"), 0600))

	cfg, err := LoadGlobalConfig()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestSaveGlobalConfig_CreatesDirectory(t *testing.T) {
	path := overrideConfigPath(t)

	err := SaveGlobalConfig(&GlobalConfig{APIToken: testToken, APIURL: "http://localhost:8080"})
	require.NoError(t, err)

	assert.DirExists(t, filepath.Dir(path))
	assert.FileExists(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestSaveGlobalConfig_RoundTrip(t *testing.T) {
	overrideConfigPath(t)

	want := &GlobalConfig{APIToken: testToken, APIURL: "https://api.example.com"}
	require.NoError(t, SaveGlobalConfig(want))

	got, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDeleteGlobalConfig(t *testing.T) {
	path := overrideConfigPath(t)

	// Deleting a missing file is not an error.
	assert.NoError(t, DeleteGlobalConfig())

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIToken: testToken}))
	require.NoError(t, DeleteGlobalConfig())
	assert.NoFileExists(t, path)
}

func TestIsValidAPIToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		valid bool
	}{
		{"valid token", "sst_" + strings.Repeat("0123456789abcdef", 4), true},
		{"valid uppercase hex", "sst_" + strings.Repeat("0123456789ABCDEF", 4), true},
		{"missing prefix", strings.Repeat("0123456789abcdef", 4), false},
		{"wrong prefix", "tok_" + strings.Repeat("0123456789abcdef", 4), false},
		{"too short", "sst_abc123", false},
		{"non-hex characters", "sst_" + strings.Repeat("0123456789abcdeg", 4), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidAPIToken(tt.token))
		})
	}
}
