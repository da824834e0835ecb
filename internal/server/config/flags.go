package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filegroups/internal/flagx"
)

var ownFlags = []string{"-a", "-d", "-n", "-s", "-b", "-l", "-t", "-m", "-v", "-f", "-u", "-p", "-k", "-g", "-e"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   MongoDB URI
//	-n string   MongoDB database name
//	-s string   storage backend: gridfs, s3 or memory
//	-b string   GridFS bucket name
//	-l string   groups collection name
//	-t int      request timeout, seconds
//	-m int      max upload size, MiB
//	-v string   log level
//	-f string   log format (json or text)
//	-u string   S3 root user
//	-p string   S3 root password
//	-k string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// os.Args is filtered with flagx.FilterArgs first so the -c config flag does
// not trip the parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], ownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.MongoURI, "d", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.MongoDatabase, "n", config.MongoDatabase, "MongoDB database name")
	fs.StringVar(&config.StorageBackend, "s", config.StorageBackend, "storage backend (gridfs, s3, memory)")
	fs.StringVar(&config.BucketName, "b", config.BucketName, "GridFS bucket name")
	fs.StringVar(&config.GroupsCollection, "l", config.GroupsCollection, "groups collection name")

	requestTimeout := fs.Int("t", int(config.RequestTimeout.Seconds()), "request timeout (in seconds)")
	maxUploadSize := fs.Int64("m", config.MaxUploadSize>>20, "max upload size (in MiB)")

	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (json, text)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "k", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -t and -m are whole units; a finer value from JSON survives unless
	// the flag is given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.RequestTimeout = time.Duration(*requestTimeout) * time.Second
		case "m":
			config.MaxUploadSize = *maxUploadSize << 20
		}
	})
}
