package envconfig_test

import (
	"os"
	"testing"

	"github.com/ou-cs3113/oufs/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	require.NoError(t, os.Unsetenv("ZPWD"))
	require.NoError(t, os.Unsetenv("ZDISK"))

	cfg := envconfig.Load()
	assert.Equal(t, envconfig.DefaultWorkingDirectory, cfg.WorkingDirectory)
	assert.Equal(t, envconfig.DefaultDiskName, cfg.DiskName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ZPWD", "/home/student")
	t.Setenv("ZDISK", "myfs.img")

	cfg := envconfig.Load()
	assert.Equal(t, "/home/student", cfg.WorkingDirectory)
	assert.Equal(t, "myfs.img", cfg.DiskName)
}
