// Package config handles configuration for the file group server,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/filegroups/internal/common"
)

// Storage backends accepted by StorageBackend.
const (
	BackendGridFS = "gridfs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Config holds runtime settings for the server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - MongoURI / MongoDatabase: MongoDB connection string and database name.
//   - StorageBackend: where blobs live ("gridfs", "s3" or "memory").
//   - BucketName: GridFS bucket name, also the S3 key prefix.
//   - GroupsCollection: collection holding group documents.
//   - RequestTimeout: per-request deadline applied by the HTTP layer.
//   - MaxUploadSize: multipart memory limit, bytes.
//   - LogLevel / LogFormat: slog handler settings.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint:
//     object storage settings, used only with the "s3" backend.
type Config struct {
	EndpointAddrHTTP string
	MongoURI         string
	MongoDatabase    string
	StorageBackend   string
	BucketName       string
	GroupsCollection string
	RequestTimeout   time.Duration
	MaxUploadSize    int64
	LogLevel         string
	LogFormat        string
	S3RootUser       string
	S3RootPassword   string
	S3Bucket         string
	S3Region         string
	S3BaseEndpoint   string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the S3 credentials are the local MinIO defaults and must be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.MongoURI = "mongodb://127.0.0.1:27017"
	c.MongoDatabase = "filegroups"
	c.StorageBackend = BackendGridFS
	c.BucketName = common.DefaultBucketName
	c.GroupsCollection = common.DefaultGroupsCollection
	c.RequestTimeout = 30 * time.Second
	c.MaxUploadSize = 64 << 20
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "filegroups"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
