package blobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
)

// S3API is the subset of *s3.Client used by S3Repository.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// S3Options configures the S3-compatible client.
type S3Options struct {
	User         string
	Password     string
	Region       string
	BaseEndpoint string
}

// User-metadata keys. S3 lowercases them, values are query-escaped.
const (
	metaName     = "name"
	metaSize     = "size"
	metaType     = "type"
	metaFilename = "filename"
)

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds a path-style client with static credentials, suitable
// for MinIO and other S3-compatible servers.
func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		so.UsePathStyle = true
	}), nil
}

var _ Repository = (*S3Repository)(nil)

// S3Repository keeps each blob as one object named "<prefix>/<id>". The
// metadata document and the stored filename travel as object user metadata.
type S3Repository struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Repository(client S3API, bucket, prefix string) *S3Repository {
	return &S3Repository{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (r *S3Repository) key(id string) string {
	if r.prefix == "" {
		return id
	}
	return r.prefix + "/" + id
}

func (r *S3Repository) idFromKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, r.prefix+"/")
}

// s3UploadStream buffers the payload; S3 has no append, so the object is
// written in one PutObject on Close.
type s3UploadStream struct {
	ctx    context.Context
	repo   *S3Repository
	id     string
	meta   map[string]string
	ctype  string
	buf    bytes.Buffer
	closed bool
}

func (s *s3UploadStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errors.New("upload stream already closed")
	}
	return s.buf.Write(p)
}

func (s *s3UploadStream) Close() error {
	if s.closed {
		return errors.New("upload stream already closed")
	}
	s.closed = true

	_, err := s.repo.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.repo.bucket),
		Key:           aws.String(s.repo.key(s.id)),
		Body:          bytes.NewReader(s.buf.Bytes()),
		ContentLength: aws.Int64(int64(s.buf.Len())),
		ContentType:   aws.String(s.ctype),
		Metadata:      s.meta,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func (s *s3UploadStream) Abort() error {
	s.closed = true
	s.buf.Reset()
	return nil
}

func (r *S3Repository) OpenUploadStream(ctx context.Context, id, filename string, meta models.BlobMetadata) (UploadStream, error) {
	ctype := meta.Type
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	return &s3UploadStream{
		ctx:   ctx,
		repo:  r,
		id:    id,
		meta:  encodeMetadata(filename, meta),
		ctype: ctype,
	}, nil
}

func (r *S3Repository) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		return nil, translateS3(err, "failed to get object")
	}
	return out.Body, nil
}

func (r *S3Repository) FindByID(ctx context.Context, id string) (*models.Blob, error) {
	out, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		return nil, translateS3(err, "failed to head object")
	}
	return decodeBlob(id, out), nil
}

func (r *S3Repository) Find(ctx context.Context, ids []string, limit int64) ([]*models.Blob, error) {
	if ids == nil {
		var err error
		if ids, err = r.listIDs(ctx, limit); err != nil {
			return nil, err
		}
	}

	result := []*models.Blob{}
	for _, id := range ids {
		if limit > 0 && int64(len(result)) >= limit {
			break
		}
		blob, err := r.FindByID(ctx, id)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, blob)
	}
	return result, nil
}

func (r *S3Repository) listIDs(ctx context.Context, limit int64) ([]string, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(r.bucket)}
	if r.prefix != "" {
		in.Prefix = aws.String(r.prefix + "/")
	}
	if limit > 0 {
		in.MaxKeys = aws.Int32(int32(limit))
	}

	out, err := r.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	ids := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		ids = append(ids, r.idFromKey(aws.ToString(obj.Key)))
	}
	return ids, nil
}

// Delete reports ErrorNotFound for a missing object; DeleteObject itself
// succeeds either way.
func (r *S3Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		return translateS3(err, "failed to delete object")
	}
	return nil
}

// Rename rewrites the filename user metadata with an in-place copy.
func (r *S3Repository) Rename(ctx context.Context, id, filename string) error {
	head, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(id)),
	})
	if err != nil {
		return translateS3(err, "failed to head object")
	}

	blob := decodeBlob(id, head)
	_, err = r.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(r.bucket),
		Key:               aws.String(r.key(id)),
		CopySource:        aws.String(r.bucket + "/" + r.key(id)),
		ContentType:       head.ContentType,
		Metadata:          encodeMetadata(filename, blob.Metadata),
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil {
		return translateS3(err, "failed to copy object")
	}
	return nil
}

func encodeMetadata(filename string, meta models.BlobMetadata) map[string]string {
	return map[string]string{
		metaName:     url.QueryEscape(meta.Name),
		metaSize:     strconv.FormatInt(meta.Size, 10),
		metaType:     url.QueryEscape(meta.Type),
		metaFilename: url.QueryEscape(filename),
	}
}

func decodeBlob(id string, out *s3.HeadObjectOutput) *models.Blob {
	get := func(k string) string {
		v, err := url.QueryUnescape(out.Metadata[k])
		if err != nil {
			return out.Metadata[k]
		}
		return v
	}

	size, _ := strconv.ParseInt(out.Metadata[metaSize], 10, 64)
	blob := &models.Blob{
		ID:       id,
		Filename: get(metaFilename),
		Length:   aws.ToInt64(out.ContentLength),
		Metadata: models.BlobMetadata{
			Name: get(metaName),
			Size: size,
			Type: get(metaType),
		},
	}
	if out.LastModified != nil {
		blob.UploadDate = out.LastModified.UTC()
	}
	return blob
}

func translateS3(err error, op string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return common.ErrorNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
