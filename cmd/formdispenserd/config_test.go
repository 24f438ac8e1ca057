package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mazrean/formdispenser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect Size
		err    bool
	}{
		{input: "1024", expect: 1024},
		{input: "0", expect: 0},
		{input: "10B", expect: 10},
		{input: "64KB", expect: Size(64 * formdispenser.KB)},
		{input: "10 mb", expect: Size(10 * formdispenser.MB)},
		{input: "2GB", expect: Size(2 * formdispenser.GB)},
		{input: "unlimited", expect: Size(formdispenser.Unlimited)},
		{input: "-1", expect: Size(formdispenser.Unlimited)},
		{input: "-2", err: true},
		{input: "-1MB", err: true},
		{input: "1.5MB", err: true},
		{input: "MB", err: true},
		{input: "", err: true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			t.Parallel()

			size, err := ParseSize(test.input)
			if test.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expect, size)
		})
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Parallel()

	t.Run("full", func(t *testing.T) {
		t.Parallel()

		config, err := LoadConfigFromYAML([]byte(`
upload_dir: /var/lib/formdispenserd
max_bytes: 10MB
max_parts: 20
max_file_size: 512KB
`))
		require.NoError(t, err)

		assert.Equal(t, "/var/lib/formdispenserd", config.UploadDir)
		require.NotNil(t, config.MaxBytes)
		assert.Equal(t, Size(10*formdispenser.MB), *config.MaxBytes)
		require.NotNil(t, config.MaxParts)
		assert.Equal(t, 20, *config.MaxParts)
		require.NotNil(t, config.MaxFileSize)
		assert.Equal(t, Size(512*formdispenser.KB), *config.MaxFileSize)
	})

	t.Run("partial", func(t *testing.T) {
		t.Parallel()

		config, err := LoadConfigFromYAML([]byte("max_bytes: 1024\n"))
		require.NoError(t, err)

		assert.Empty(t, config.UploadDir)
		require.NotNil(t, config.MaxBytes)
		assert.Equal(t, Size(1024), *config.MaxBytes)
		assert.Nil(t, config.MaxParts)
		assert.Nil(t, config.MaxFileSize)
	})

	t.Run("invalid size", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFromYAML([]byte("max_bytes: lots\n"))
		assert.Error(t, err)
	})

	t.Run("size is not a scalar", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFromYAML([]byte("max_bytes: [1, 2]\n"))
		assert.Error(t, err)
	})
}

func TestLoadConfigFromYAMLFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "formdispenserd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_parts: 3\n"), 0o600))

	config, err := LoadConfigFromYAMLFile(path)
	require.NoError(t, err)
	require.NotNil(t, config.MaxParts)
	assert.Equal(t, 3, *config.MaxParts)

	_, err = LoadConfigFromYAMLFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
