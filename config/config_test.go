package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValid(t *testing.T) {
	t.Helper()
	t.Setenv(KeyHost, "localhost")
	t.Setenv(KeyPort, "5432")
	t.Setenv(KeyName, "samson")
	t.Setenv(KeyUsername, "migrator")
	t.Setenv(KeyPassword, "s3cret")
}

func TestLoad_Valid(t *testing.T) {
	setValid(t)

	cfg, err := Load(NewViper())
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "samson", cfg.Database)
	assert.Equal(t, "public", cfg.Schema)
	assert.Equal(t, DefaultSchemaDir, cfg.SchemaDir)
	assert.Equal(t, DefaultSSLMode, cfg.SSLMode)
}

func TestLoad_ReportsEveryMissingKey(t *testing.T) {
	for _, key := range Keys {
		t.Setenv(key, "")
	}

	_, err := Load(NewViper())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	var keys []string
	for _, issue := range cfgErr.Issues {
		keys = append(keys, issue.Key)
	}
	assert.ElementsMatch(t, []string{KeyHost, KeyPort, KeyName, KeyUsername, KeyPassword}, keys)
	assert.Contains(t, err.Error(), "required property DATABASE_HOST is missing")
}

func TestLoad_InvalidPortAndDriver(t *testing.T) {
	setValid(t)
	t.Setenv(KeyPort, "not-a-port")
	t.Setenv(KeyDriver, "oracle")

	_, err := Load(NewViper())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, cfgErr.Issues, 2)
	assert.Equal(t, KeyDriver, cfgErr.Issues[0].Key)
	assert.Equal(t, KeyPort, cfgErr.Issues[1].Key)
}

func TestLoad_MySQLSchemaDefaultsToDatabase(t *testing.T) {
	setValid(t)
	t.Setenv(KeyDriver, "MySQL")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, DriverMySQL, cfg.Driver)
	assert.Equal(t, "samson", cfg.Schema)
}

func TestLoad_OverrideWins(t *testing.T) {
	setValid(t)
	v := NewViper()
	v.Set(KeyHost, "db.internal")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
}

func TestRequireBaseURL(t *testing.T) {
	assert.Error(t, Config{}.RequireBaseURL())
	assert.Error(t, Config{BaseURL: "not a url"}.RequireBaseURL())
	assert.NoError(t, Config{BaseURL: "http://localhost:8000"}.RequireBaseURL())

	t.Setenv(KeyBaseURL, "https://api.samson.dev/prod")
	cfg, err := LoadService(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "https://api.samson.dev/prod", cfg.BaseURL)
}

func TestRedacted(t *testing.T) {
	cfg := Config{Driver: "postgres", Username: "u", Password: "hunter2", Host: "h", Port: 5432, Database: "d", Schema: "public"}
	assert.NotContains(t, cfg.Redacted(), "hunter2")
	assert.Equal(t, "postgres://u:***@h:5432/d (schema public)", cfg.Redacted())
}
