package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"

	"yatube/forms"
)

const (
	// URLPrefix is where the media root is served.
	URLPrefix = "/media/"
	// MaxUploadSize bounds a single image upload.
	MaxUploadSize = 5 << 20

	postsDir = "posts"
)

var ErrNotAnImage = errors.New("upload is not an image")

// Store keeps uploaded files under a root directory. Files are named after
// the xxhash of their content, so identical uploads share one file.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// SavePostImage validates fh as an image and stores it, returning the path
// relative to the media root (e.g. "posts/1f2e3d4c5b6a7980.png").
func (s *Store) SavePostImage(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxUploadSize {
		return "", forms.Invalid("image", fmt.Sprintf("Image is larger than %d MB.", MaxUploadSize>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	rel, err := s.save(postsDir, data)
	if errors.Is(err, ErrNotAnImage) {
		return "", forms.Invalid("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	return rel, err
}

func (s *Store) save(dir string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotAnImage
	}

	name := fmt.Sprintf("%016x%s", xxhash.Sum64(data), mt.Extension())
	rel := path.Join(dir, name)
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	if _, err := os.Stat(full); err == nil {
		return rel, nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", err
	}
	return rel, nil
}

// URL maps a stored relative path to its public URL.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return URLPrefix + strings.TrimPrefix(rel, "/")
}
