package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
	assert.Equal(t, DefaultAPIURL, cfg.Defaults.APIURL)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Equal(t, DefaultAPIURL, cfg.Defaults.APIURL)
}

func TestLoad_WithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `current_profile: soc
profiles:
  soc:
    api_url: https://fwlens.example.com
    username: analyst
    access_token: test-token-123
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "soc", cfg.CurrentProfile)
	require.Contains(t, cfg.Profiles, "soc")
	assert.Equal(t, "https://fwlens.example.com", cfg.Profiles["soc"].APIURL)
	assert.Equal(t, "analyst", cfg.Profiles["soc"].Username)
	assert.Equal(t, "test-token-123", cfg.Profiles["soc"].AccessToken)
	assert.Equal(t, DefaultAPIURL, cfg.Defaults.APIURL)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("FWLENS_API_URL", "http://env-api:9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env-api:9000", cfg.Defaults.APIURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	invalidYAML := `current_profile:
  - this
  - is
  - a list`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0o600))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config")
}

func TestSave_Permissions(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".fwlens", "config.yaml")

	cfg := Default()
	cfg.path = configPath
	cfg.CurrentProfile = "test-profile"
	require.NoError(t, cfg.Save())

	dirInfo, err := os.Stat(filepath.Dir(configPath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fileInfo.Mode().Perm())

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "test-profile", loaded.CurrentProfile)
}

func TestSaveProfile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	expires := time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC)

	cfg := Default()
	cfg.path = configPath
	require.NoError(t, cfg.SaveProfile("dev", &Profile{APIURL: "http://dev:8000", AccessToken: "dev-token"}))
	require.NoError(t, cfg.SaveProfile("prod", &Profile{APIURL: "https://prod", AccessToken: "prod-token", ExpiresAt: expires}))

	assert.Equal(t, "prod", cfg.CurrentProfile)

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Contains(t, loaded.Profiles, "dev")
	require.Contains(t, loaded.Profiles, "prod")
	assert.True(t, expires.Equal(loaded.Profiles["prod"].ExpiresAt))
}

func TestGetProfile(t *testing.T) {
	cfg := Default()
	cfg.Profiles["test"] = &Profile{APIURL: "https://test.example.com"}
	cfg.CurrentProfile = "test"

	tests := []struct {
		name        string
		profileName string
		wantErr     bool
	}{
		{name: "by name", profileName: "test"},
		{name: "current profile with empty name", profileName: ""},
		{name: "missing", profileName: "nonexistent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := cfg.GetProfile(tt.profileName)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, profile)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://test.example.com", profile.APIURL)
		})
	}
}

func TestRemoveProfile(t *testing.T) {
	cfg := Default()
	cfg.path = filepath.Join(t.TempDir(), "config.yaml")
	cfg.Profiles["dev"] = &Profile{APIURL: "http://dev:8000"}
	cfg.Profiles["prod"] = &Profile{APIURL: "http://prod:8000"}
	cfg.CurrentProfile = "dev"

	require.NoError(t, cfg.RemoveProfile("prod"))
	assert.NotContains(t, cfg.Profiles, "prod")
	assert.Equal(t, "dev", cfg.CurrentProfile)

	require.NoError(t, cfg.RemoveProfile("dev"))
	assert.Equal(t, "", cfg.CurrentProfile)

	assert.Error(t, cfg.RemoveProfile("nonexistent"))
}

func TestGetAPIURL(t *testing.T) {
	cfg := Default()
	cfg.Profiles["custom"] = &Profile{APIURL: "https://custom.example.com"}
	cfg.Profiles["partial"] = &Profile{AccessToken: "x"}

	assert.Equal(t, "https://custom.example.com", cfg.GetAPIURL("custom"))
	assert.Equal(t, DefaultAPIURL, cfg.GetAPIURL("partial"))
	assert.Equal(t, DefaultAPIURL, cfg.GetAPIURL("nonexistent"))
}

func TestProfile_Expired(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	assert.False(t, (&Profile{}).Expired(now))
	assert.False(t, (&Profile{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&Profile{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
}
