// Package blob stores item attachments. Keys are slash separated paths such
// as items/{itemID}/{uuid}.pdf.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/model"
)

// Driver names a storage backend.
type Driver string

// Drivers.
const (
	DriverFS     Driver = "fs"
	DriverS3     Driver = "s3"
	DriverMemory Driver = "memory"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("blob not found")

// PutOptions describes an upload.
type PutOptions struct {
	ContentType string
}

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// Store is a blob backend. Put overwrites an existing key. Delete of a
// missing key is not an error.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Info, error)
	URL(key string) string
}

// FilesPath is where the API serves blobs when no public URL is configured.
const FilesPath = "/api/files/"

func urlFor(publicURL, key string) string {
	if publicURL == "" {
		return FilesPath + key
	}
	return strings.TrimRight(publicURL, "/") + "/" + key
}

// ValidKey reports whether key is a relative path without dot segments.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// ItemPrefix returns the key prefix holding all of an item's blobs.
func ItemPrefix(itemID string) string {
	return "items/" + itemID + "/"
}

// ImageKey returns the key of an item's photo.
func ImageKey(itemID string) string {
	return ItemPrefix(itemID) + "image.jpg"
}

// DocumentKey returns a fresh key for an attachment named filename.
func DocumentKey(itemID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "." {
		ext = ""
	}
	return ItemPrefix(itemID) + uuid.NewString() + ext
}

// DocumentType classifies an attachment by content type.
func DocumentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return model.DocumentImage
	case mediaType == "application/pdf":
		return model.DocumentPDF
	default:
		return model.DocumentDocument
	}
}

// DeleteAll removes every blob under prefix and returns how many it removed.
// It keeps going after a failed delete and returns the first error.
func DeleteAll(ctx context.Context, s Store, prefix string) (int, error) {
	infos, err := s.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", prefix, err)
	}
	var (
		removed  int
		firstErr error
	)
	for _, info := range infos {
		if err := s.Delete(ctx, info.Key); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("deleting %s: %w", info.Key, err)
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
