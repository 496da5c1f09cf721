package utils

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrImageTooLarge is returned when an upload exceeds the configured size.
	ErrImageTooLarge = errors.New("image exceeds size limit")
	// ErrNotAnImage is returned when the upload is not a recognised image format.
	ErrNotAnImage = errors.New("file is not an image")
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// ImageStore saves post images below Root/posts and exposes them under URL.
type ImageStore struct {
	Root     string
	URL      string
	MaxBytes int64
}

// NewImageStore builds an ImageStore. maxMB <= 0 falls back to 5MB.
func NewImageStore(root, url string, maxMB int) *ImageStore {
	if maxMB <= 0 {
		maxMB = 5
	}
	return &ImageStore{Root: root, URL: url, MaxBytes: int64(maxMB) << 20}
}

// Save writes the upload under a random name and returns its path relative to Root.
func (s *ImageStore) Save(header *multipart.FileHeader) (string, error) {
	if header.Size > s.MaxBytes {
		return "", ErrImageTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()
	return s.SaveReader(file)
}

// SaveReader is Save for an already opened stream.
func (s *ImageStore) SaveReader(r io.Reader) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return "", ErrNotAnImage
		}
		return "", err
	}
	head = head[:n]
	ext, ok := imageExt[http.DetectContentType(head)]
	if !ok {
		return "", ErrNotAnImage
	}

	dir := filepath.Join(s.Root, "posts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	dst := filepath.Join(dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	lr := &io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.MaxBytes + 1}
	written, err := io.Copy(out, lr)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.MaxBytes {
		err = ErrImageTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return path.Join("posts", name), nil
}

// PublicURL maps a stored relative path to its served URL. Empty stays empty.
func (s *ImageStore) PublicURL(rel string) string {
	if rel == "" {
		return ""
	}
	return strings.TrimSuffix(s.URL, "/") + "/" + strings.TrimPrefix(rel, "/")
}

// Remove deletes a stored image, ignoring missing files.
func (s *ImageStore) Remove(rel string) {
	if rel == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		Sugar.Warnf("remove image %s failed: %v", rel, err)
	}
}
