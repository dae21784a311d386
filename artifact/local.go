package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sluiceworks/sluice/fs"
)

// LocalStore keeps artifacts as plain files under a directory of the
// runner's filesystem. It is the default backend.
type LocalStore struct {
	fsys fs.Filesystem
	root string
}

// NewLocalStore creates a local artifact store rooted at root within fsys.
func NewLocalStore(fsys fs.Filesystem, root string) (*LocalStore, error) {
	if fsys == nil {
		return nil, errors.New("filesystem is required")
	}
	if root == "" {
		root = "."
	}
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root %q: %w", root, err)
	}
	return &LocalStore{fsys: fsys, root: root}, nil
}

func (s *LocalStore) objectPath(key string) string {
	return path.Join(s.root, key)
}

// Put implements Store.
func (s *LocalStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("read artifact %q: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return ObjectInfo{}, fmt.Errorf("artifact %q: got %d bytes, expected %d", key, len(data), size)
	}

	target := s.objectPath(key)
	if dir := path.Dir(target); dir != "." {
		if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
			return ObjectInfo{}, fmt.Errorf("create artifact directory %q: %w", dir, err)
		}
	}
	if err := s.fsys.WriteFile(target, data, 0o644); err != nil {
		return ObjectInfo{}, fmt.Errorf("write artifact %q: %w", key, err)
	}

	if contentType == "" {
		contentType = detectContentType(data)
	}

	return ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
	}, nil
}

// Get implements Store.
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	info, err := s.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := s.fsys.Open(s.objectPath(key))
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("open artifact %q: %w", key, err)
	}
	return f, info, nil
}

// Stat implements Store. The content type is sniffed from the stored
// bytes since the local backend keeps no metadata.
func (s *LocalStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	target := s.objectPath(key)
	fi, err := s.fsys.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return ObjectInfo{}, fmt.Errorf("stat artifact %q: %w", key, err)
	}

	return ObjectInfo{
		Key:          key,
		Size:         fi.Size(),
		ContentType:  s.sniff(target),
		LastModified: fi.ModTime(),
	}, nil
}

// List implements Store.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exists, err := s.fsys.Exists(s.root)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	if !exists {
		return nil, nil
	}

	var infos []ObjectInfo
	err = s.fsys.Walk(s.root, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}

		key := p
		if s.root != "." {
			key = strings.TrimPrefix(p, s.root+"/")
		}
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		infos = append(infos, ObjectInfo{
			Key:          key,
			Size:         fi.Size(),
			LastModified: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Delete implements Store.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.fsys.Remove(s.objectPath(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete artifact %q: %w", key, err)
	}
	return nil
}

// sniff reads the head of a stored file for content type detection.
func (s *LocalStore) sniff(target string) string {
	f, err := s.fsys.Open(target)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return "application/octet-stream"
	}
	return detectContentType(buf[:n])
}
