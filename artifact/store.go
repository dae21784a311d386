// Package artifact stores the files jobs declare as artifacts. Objects live
// under run-scoped keys of the form <run-id>/<job-id>/<workspace-relative
// path>, in either a local directory store or an S3-compatible bucket.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// ErrInvalidKey is returned for keys that are empty, absolute, or escape
// the store root.
var ErrInvalidKey = errors.New("invalid artifact key")

// ObjectInfo describes a stored artifact.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Store abstracts artifact storage. Keys are clean, slash-separated
// relative paths; Key builds the run-scoped form the runner uses.
type Store interface {
	// Put stores body under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectInfo, error)

	// Get returns a reader for the artifact along with its info.
	// The caller must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Stat returns info for the artifact without reading it.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// List returns the artifacts whose keys start with prefix, ordered
	// by key. ContentType may be empty in listings.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes the artifact. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key builds the run-scoped key for a workspace-relative artifact path.
func Key(runID, jobID, rel string) string {
	return path.Join(runID, jobID, path.Clean(rel))
}

// JobPrefix is the key prefix all of a job's artifacts share.
func JobPrefix(runID, jobID string) string {
	return runID + "/" + jobID + "/"
}

// RunPrefix is the key prefix all of a run's artifacts share.
func RunPrefix(runID string) string {
	return runID + "/"
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// detectContentType sniffs the content type from the object bytes.
func detectContentType(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(data).String()
}
