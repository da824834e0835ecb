// Package models defines the documents persisted by the file and group stores.
package models

import "time"

// FileMeta is the descriptive record of a stored blob. Groups embed a copy of
// it, so it can drift from the blob's own metadata after a direct rename.
type FileMeta struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
	Size int64  `bson:"size" json:"size"`
	Type string `bson:"type" json:"type"`
}

// File is a fully loaded blob.
type File struct {
	FileMeta
	// Filename is the blob's stored filename: the id until the blob is renamed.
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
}

// BlobMetadata is the metadata document attached to a blob at upload time.
type BlobMetadata struct {
	Name string `bson:"name" json:"name"`
	Size int64  `bson:"size" json:"size"`
	Type string `bson:"type" json:"type"`
}

// Blob mirrors a GridFS files-collection document.
type Blob struct {
	ID         string       `bson:"_id"`
	Filename   string       `bson:"filename"`
	Length     int64        `bson:"length"`
	UploadDate time.Time    `bson:"uploadDate"`
	Metadata   BlobMetadata `bson:"metadata"`
}

// Meta projects the blob onto the record groups embed.
func (b *Blob) Meta() FileMeta {
	return FileMeta{
		ID:   b.ID,
		Name: b.Metadata.Name,
		Size: b.Metadata.Size,
		Type: b.Metadata.Type,
	}
}
