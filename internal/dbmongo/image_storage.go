package dbmongo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ImageStore keeps message image payloads in GridFS. A send request may
// carry the image inline; the server parks the blob here and rewrites the
// message to a retrievable URL so clients never ship the bytes around twice.
type ImageStore struct {
	gridFS *gridfs.Bucket
}

func NewImageStore(mongoClient *MongoClient) *ImageStore {
	return &ImageStore{
		gridFS: mongoClient.GridFS,
	}
}

type ImageInfo struct {
	ID         string    `json:"id"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (s *ImageStore) Upload(ctx context.Context, uploaderID, mimeType string, content []byte) (*ImageInfo, error) {
	metadata := bson.M{
		"mime_type":   mimeType,
		"uploaded_by": uploaderID,
		"uploaded_at": time.Now(),
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := s.gridFS.OpenUploadStream("message-image", opts)
	if err != nil {
		return nil, fmt.Errorf("image upload failed: %w", err)
	}
	defer stream.Close()

	size, err := io.Copy(stream, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("image copy failed: %w", err)
	}

	return &ImageInfo{
		ID:         stream.FileID.(primitive.ObjectID).Hex(),
		Size:       size,
		MimeType:   mimeType,
		UploadedBy: uploaderID,
		UploadedAt: time.Now(),
	}, nil
}

func (s *ImageStore) Open(ctx context.Context, imageID string) (io.Reader, *ImageInfo, error) {
	objectID, err := primitive.ObjectIDFromHex(imageID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid image ID: %w", err)
	}

	stream, err := s.gridFS.OpenDownloadStream(objectID)
	if err != nil {
		return nil, nil, fmt.Errorf("image download failed: %w", err)
	}

	fileInfo := stream.GetFile()
	var metadata bson.M
	if fileInfo.Metadata != nil {
		bson.Unmarshal(fileInfo.Metadata, &metadata)
	}

	info := &ImageInfo{
		ID:         imageID,
		Size:       fileInfo.Length,
		MimeType:   getStringFromMap(metadata, "mime_type"),
		UploadedBy: getStringFromMap(metadata, "uploaded_by"),
		UploadedAt: fileInfo.UploadDate,
	}

	return stream, info, nil
}

func (s *ImageStore) Delete(ctx context.Context, imageID string) error {
	objectID, err := primitive.ObjectIDFromHex(imageID)
	if err != nil {
		return fmt.Errorf("invalid image ID: %w", err)
	}
	return s.gridFS.Delete(objectID)
}

func getStringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
