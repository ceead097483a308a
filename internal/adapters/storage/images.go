package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// ImageStore persists generated images to disk so they survive restarts
type ImageStore struct {
	dir string
	log *logger.Logger
}

func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create images dir %s", dir)
	}
	return &ImageStore{
		dir: dir,
		log: logger.Get().With("component", "image_store"),
	}, nil
}

// Save writes image bytes under a timestamped name and returns the path.
// Format is the image subtype, e.g. "png"; empty defaults to jpeg.
func (s *ImageStore) Save(data []byte, format string) (string, error) {
	if format == "" {
		format = "jpeg"
	}

	name := fmt.Sprintf("generated_%s.%s", time.Now().UTC().Format("20060102_150405.000"), format)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write image %s", path)
	}

	s.log.Debugw("Image saved", "path", path, "bytes", len(data))
	return path, nil
}
