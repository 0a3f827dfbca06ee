package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

var _ domain.BlobStore = (*FS)(nil)

// FS keeps blobs as files under a root directory with a ".meta" sidecar holding the content type.
type FS struct {
	root string
}

type metaFile struct {
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

func NewFS(root string) (*FS, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FS{root: root}, nil
}

func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *FS) pathFor(key string) (string, string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath := filepath.Join(s.root, k)
	return dataPath, dataPath + ".meta", nil
}

// Put writes through a temp file and renames it into place, replacing any previous blob.
func (s *FS) Put(_ context.Context, key string, data []byte, contentType string) error {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dataPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return err
	}
	raw, err := json.Marshal(metaFile{ContentType: contentType, Size: len(data)})
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath, raw, 0o644)
}

func (s *FS) Get(_ context.Context, key string) ([]byte, string, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, "", err
	}
	var mf metaFile
	if raw, err := os.ReadFile(metaPath); err == nil {
		_ = json.Unmarshal(raw, &mf)
	}
	return data, mf.ContentType, nil
}

func (s *FS) Delete(_ context.Context, key string) error {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dataPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	_ = os.Remove(metaPath)
	return nil
}
