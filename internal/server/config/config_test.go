package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, "mongodb://127.0.0.1:27017", c.MongoURI)
	assert.Equal(t, "filegroups", c.MongoDatabase)
	assert.Equal(t, BackendGridFS, c.StorageBackend)
	assert.Equal(t, "files", c.BucketName)
	assert.Equal(t, "groups", c.GroupsCollection)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, int64(64<<20), c.MaxUploadSize)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.Equal(t, "http://127.0.0.1:9000/", c.S3BaseEndpoint)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c := LoadConfig()
	require.NotNil(t, c, "LoadConfig must not return nil")

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, t.TempDir(), "cfg.json", map[string]any{
		"endpoint_addr_http": ":7000",
		"mongo_database":     "from_json",
	})
	os.Args = []string{"testbin", "-c", path, "-n", "from_flag"}

	c := LoadConfig()

	assert.Equal(t, ":7000", c.EndpointAddrHTTP)
	assert.Equal(t, "from_flag", c.MongoDatabase)
}

func TestLoadConfig_KeepsSubUnitJSONValues(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, t.TempDir(), "cfg.json", map[string]any{
		"max_upload_size": 524288,
		"request_timeout": "1500ms",
	})
	os.Args = []string{"testbin", "-c", path}

	c := LoadConfig()

	assert.Equal(t, int64(524288), c.MaxUploadSize)
	assert.Equal(t, 1500*time.Millisecond, c.RequestTimeout)
}

func TestLoadConfig_UnitFlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, t.TempDir(), "cfg.json", map[string]any{
		"max_upload_size": 524288,
		"request_timeout": "1500ms",
	})
	os.Args = []string{"testbin", "-c", path, "-t", "5", "-m", "2"}

	c := LoadConfig()

	assert.Equal(t, int64(2<<20), c.MaxUploadSize)
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
}
