package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/blob"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "inventar.sqlite3", cfg.DB)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, 20.0, cfg.HTTP.RateLimit)
	assert.Equal(t, 40, cfg.HTTP.RateBurst)
}

func TestFileEnvAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db: /var/lib/inventar/db.sqlite3
addr: ":9000"
log:
  level: debug
blob:
  driver: s3
  public_url: https://files.example.com
  s3:
    bucket: inventar
    region: eu-central-1
    path_style: true
`), 0o644))

	t.Setenv("INVENTAR_ADDR", ":9100")
	t.Setenv("INVENTAR_BLOB_S3_ENDPOINT", "http://minio:9000")

	cfg, err := Load(path, map[string]any{"log.level": "warn"})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/inventar/db.sqlite3", cfg.DB)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)

	bc := cfg.BlobConfig()
	assert.Equal(t, blob.DriverS3, bc.Driver)
	assert.Equal(t, "inventar", bc.S3.Bucket)
	assert.Equal(t, "http://minio:9000", bc.S3.Endpoint)
	assert.True(t, bc.S3.PathStyle)
	assert.Equal(t, "https://files.example.com", bc.PublicURL)
}

func TestValidation(t *testing.T) {
	_, err := Load("", map[string]any{"blob.driver": "ftp"})
	assert.Error(t, err)

	_, err = Load("", map[string]any{"blob.driver": "s3"})
	assert.Error(t, err)

	_, err = Load("", map[string]any{"http.rate_limit": -1})
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
