// Package common contains shared constants and sentinel errors used across
// the file store, the group store and their transports.
package common

const (
	// UploadSegmentSize is the size of the segments an upload payload is
	// written in.
	UploadSegmentSize = 16 * 1024 * 1024

	// ListLimit caps listing and bulk lookup queries against the blob store.
	ListLimit = 100

	// DefaultBucketName is the GridFS bucket (and S3 key prefix) used for blobs.
	DefaultBucketName = "files"

	// DefaultGroupsCollection is the collection holding group documents.
	DefaultGroupsCollection = "groups"
)
