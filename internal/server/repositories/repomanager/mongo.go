package repomanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/server/config"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/groups"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ RepositoryManager = (*MongoRepositoryManager)(nil)

// MongoRepositoryManager keeps groups in a MongoDB collection and blobs in
// either a GridFS bucket of the same database or an S3 bucket.
type MongoRepositoryManager struct {
	client *mongo.Client
	blobs  blobs.Repository
	groups *groups.MongoRepository
}

// mongoConnect is a seam for tests.
var mongoConnect = func(ctx context.Context, uri string) (*mongo.Client, error) {
	return mongo.Connect(ctx, options.Client().ApplyURI(uri))
}

// newS3Client is a seam for tests.
var newS3Client = func(ctx context.Context, o blobs.S3Options) (blobs.S3API, error) {
	c, err := blobs.NewS3Client(ctx, o)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewMongoRepositoryManager connects to cfg.MongoURI and verifies the
// connection with a ping.
func NewMongoRepositoryManager(ctx context.Context, cfg *config.Config) (*MongoRepositoryManager, error) {
	client, err := mongoConnect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	m, err := newMongoRepositoryManager(ctx, client, cfg)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func newMongoRepositoryManager(ctx context.Context, client *mongo.Client, cfg *config.Config) (*MongoRepositoryManager, error) {
	db := client.Database(cfg.MongoDatabase)

	var br blobs.Repository
	switch cfg.StorageBackend {
	case config.BackendGridFS:
		r, err := blobs.NewGridFSRepository(db, cfg.BucketName)
		if err != nil {
			return nil, err
		}
		br = r
	case config.BackendS3:
		c, err := newS3Client(ctx, blobs.S3Options{
			User:         cfg.S3RootUser,
			Password:     cfg.S3RootPassword,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		br = blobs.NewS3Repository(c, cfg.S3Bucket, strings.Trim(cfg.BucketName, "/"))
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownBackend, cfg.StorageBackend)
	}

	return &MongoRepositoryManager{
		client: client,
		blobs:  br,
		groups: groups.NewMongoRepository(db.Collection(cfg.GroupsCollection)),
	}, nil
}

func (m *MongoRepositoryManager) Blobs() blobs.Repository {
	return m.blobs
}

func (m *MongoRepositoryManager) Groups() groups.Repository {
	return m.groups
}

func (m *MongoRepositoryManager) EnsureIndexes(ctx context.Context) error {
	return m.groups.EnsureIndexes(ctx)
}

// Close disconnects the client. The S3 client holds no connection to release.
func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	return nil
}
