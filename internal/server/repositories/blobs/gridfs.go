package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Repository = (*GridFSRepository)(nil)

// GridFSRepository keeps blobs in a GridFS bucket. The blob id is the files
// document _id, so renaming the stored filename never breaks id lookups.
type GridFSRepository struct {
	bucket *gridfs.Bucket
}

// NewGridFSRepository opens the named bucket in db.
func NewGridFSRepository(db *mongo.Database, bucketName string) (*GridFSRepository, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &GridFSRepository{bucket: bucket}, nil
}

func (r *GridFSRepository) OpenUploadStream(ctx context.Context, id, filename string, meta models.BlobMetadata) (UploadStream, error) {
	opts := options.GridFSUpload().SetMetadata(meta)
	stream, err := r.bucket.OpenUploadStreamWithID(id, filename, opts)
	if err != nil {
		return nil, fmt.Errorf("open upload stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetWriteDeadline(deadline); err != nil {
			_ = stream.Abort()
			return nil, fmt.Errorf("set write deadline: %w", err)
		}
	}
	return stream, nil
}

func (r *GridFSRepository) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error) {
	stream, err := r.bucket.OpenDownloadStream(id)
	if err != nil {
		return nil, translate(err, "open download stream")
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetReadDeadline(deadline); err != nil {
			_ = stream.Close()
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}
	return stream, nil
}

func (r *GridFSRepository) FindByID(ctx context.Context, id string) (*models.Blob, error) {
	cursor, err := r.bucket.FindContext(ctx, bson.D{{Key: "_id", Value: id}}, options.GridFSFind().SetLimit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to find blob: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("failed to find blob: %w", err)
		}
		return nil, common.ErrorNotFound
	}

	var blob models.Blob
	if err := cursor.Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode blob: %w", err)
	}
	return &blob, nil
}

func (r *GridFSRepository) Find(ctx context.Context, ids []string, limit int64) ([]*models.Blob, error) {
	filter := bson.D{}
	if ids != nil {
		filter = bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	}

	opts := options.GridFSFind()
	if limit > 0 {
		opts.SetLimit(int32(limit))
	}

	cursor, err := r.bucket.FindContext(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find blobs: %w", err)
	}
	defer cursor.Close(ctx)

	result := []*models.Blob{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode blobs: %w", err)
	}
	return result, nil
}

func (r *GridFSRepository) Delete(ctx context.Context, id string) error {
	return translate(r.bucket.DeleteContext(ctx, id), "failed to delete blob")
}

func (r *GridFSRepository) Rename(ctx context.Context, id, filename string) error {
	return translate(r.bucket.RenameContext(ctx, id, filename), "failed to rename blob")
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gridfs.ErrFileNotFound):
		return common.ErrorNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
