package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultSchema, cfg.Schema)
	assert.Equal(t, DefaultOutDir, cfg.OutDir)
	assert.Equal(t, DefaultSnapshot, cfg.SnapshotPath)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, DefaultSchema, cfg.Database.Schema)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
schema: sales
out_dir: site
port: 9000
database:
  host: db.internal
  user: reporter
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sales", cfg.Schema)
	assert.Equal(t, "site", cfg.OutDir)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "reporter", cfg.Database.User)
	assert.Equal(t, "sales", cfg.Database.Schema)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), FileUsed())
}

func TestLoadFindsConfigUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("schema: hr\n"), 0o600))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "hr", cfg.Schema)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("schema: sales\n"), 0o600))
	t.Setenv("ERDASH_SCHEMA", "finance")
	t.Setenv("ERDASH_DATABASE__HOST", "pg.finance")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "finance", cfg.Schema)
	assert.Equal(t, "pg.finance", cfg.Database.Host)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ERDASH_SCHEMA", "finance")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("schema", "", "")
	flags.String("out", "", "")
	flags.String("db-host", "", "")
	require.NoError(t, flags.Parse([]string{"--schema=ops", "--out=build", "--db-host=pg.ops"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.Schema)
	assert.Equal(t, "build", cfg.OutDir)
	assert.Equal(t, "pg.ops", cfg.Database.Host)
}

func TestLoadExpandsCredentialEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := `
database:
  user: reporter
  password: ${ERD_TEST_PW}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0o600))
	t.Setenv("ERD_TEST_PW", "s3cret")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestLoadLeavesUnsetEnvVarPattern(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName),
		[]byte("database:\n  password: ${ERD_TEST_UNSET_PW}\n"), 0o600))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "${ERD_TEST_UNSET_PW}", cfg.Database.Password)
}
