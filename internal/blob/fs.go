package blob

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// FSStore stores objects as files under a root directory. Metadata and
// content type go to a sidecar file next to the object. Writes go through a
// temp file + rename so readers never see a partial object.
type FSStore struct {
	root string
}

// NewFS creates an FSStore rooted at dir, creating it if needed.
func NewFS(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "blob: create root %s", dir)
	}
	return &FSStore{root: dir}, nil
}

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", eris.Errorf("blob: invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FSStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "blob: put")
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "blob: mkdir for %s", key)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "blob: write %s", key)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return eris.Wrapf(err, "blob: rename %s", key)
	}

	if contentType != "" || len(metadata) > 0 {
		meta, err := json.Marshal(sidecar{ContentType: contentType, Metadata: metadata})
		if err != nil {
			return eris.Wrapf(err, "blob: marshal metadata %s", key)
		}
		if err := os.WriteFile(path+".meta", meta, 0o644); err != nil {
			return eris.Wrapf(err, "blob: write metadata %s", key)
		}
	}
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "blob: get")
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "blob: read %s", key)
	}
	return data, nil
}

// Metadata returns the sidecar metadata stored with a key, or nil when no
// sidecar exists.
func (s *FSStore) Metadata(key string) (map[string]string, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "blob: read metadata %s", key)
	}
	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, eris.Wrapf(err, "blob: decode metadata %s", key)
	}
	return sc.Metadata, nil
}
