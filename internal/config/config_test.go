package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"giftcircle/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDotEnvKeepsExistingVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	contents := "GC_TEST_NEW=from-file\nGC_TEST_SET=from-file\n# comment\nexport GC_TEST_QUOTED=\"a b\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	t.Setenv("GC_TEST_SET", "from-env")
	t.Setenv("GC_TEST_NEW", "")
	require.NoError(t, os.Unsetenv("GC_TEST_NEW"))
	t.Setenv("GC_TEST_QUOTED", "")
	require.NoError(t, os.Unsetenv("GC_TEST_QUOTED"))

	loaded, skipped, err := applyDotEnv(path)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "from-file", os.Getenv("GC_TEST_NEW"))
	assert.Equal(t, "from-env", os.Getenv("GC_TEST_SET"))
	assert.Equal(t, "a b", os.Getenv("GC_TEST_QUOTED"))
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REALTIME_LISTENER_MIN_RECONNECT", "2s")
	t.Setenv("RECEIPTS_S3_BUCKET", "")

	cfg, err := Load(logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Realtime.ListenerMinReconnect)
	assert.Equal(t, 50, cfg.Claims.MaxBatch)
	assert.False(t, cfg.Receipts.Enabled)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := Load(logger.Discard())
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	assert.Equal(t, "postgres://x", DBConfig{DSN: "postgres://x"}.GetDSN())
	cfg := DBConfig{Host: "h", User: "u", Password: "p", Name: "n", Port: "5432", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=h user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", cfg.GetDSN())
}
