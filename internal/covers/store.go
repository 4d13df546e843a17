// Package covers stores book cover images on the local filesystem and
// records the stored reference on the book.
//
// A cover is written to a temp file and renamed into place, then the book's
// image field is set through ImageSetter. Generic book updates never touch
// that field.
package covers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/shelf/internal/repoerr"
)

// maxCoverSize caps uploads and downloads.
const maxCoverSize = 10 << 20

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var contentTypeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageSetter persists the cover reference of a book.
type ImageSetter interface {
	SetCoverImage(ctx context.Context, id uuid.UUID, image string) error
}

// Store handles local storage of book cover images.
type Store struct {
	dir        string
	books      ImageSetter
	httpClient *http.Client
}

// NewStore creates a cover store at the specified directory.
func NewStore(dir string, books ImageSetter) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}

	return &Store{
		dir:   dir,
		books: books,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// SaveUpload writes an uploaded cover and sets it on the book. ext is the
// original file extension, e.g. ".png".
func (s *Store) SaveUpload(ctx context.Context, bookID uuid.UUID, ext string, r io.Reader) (string, error) {
	ext = strings.ToLower(ext)
	if !allowedExtensions[ext] {
		return "", repoerr.Validation("cover", fmt.Sprintf("unsupported image type %q", ext))
	}
	return s.save(ctx, bookID, ext, r)
}

// FetchRemote downloads a cover from url and sets it on the book.
func (s *Store) FetchRemote(ctx context.Context, bookID uuid.UUID, url string) (string, error) {
	if url == "" {
		return "", repoerr.Validation("cover_url", "is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", repoerr.Validation("cover_url", err.Error())
	}
	req.Header.Set("User-Agent", "Shelf/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mediaType(contentType), "image/") {
		return "", repoerr.Validation("content_type", fmt.Sprintf("cover url returned %q, not an image", contentType))
	}
	return s.save(ctx, bookID, extensionFor(contentType, url), resp.Body)
}

// Path returns the file path of a stored cover, rejecting names that would
// escape the covers directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", repoerr.Validation("cover", "invalid cover name")
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", repoerr.NotFound("cover", name)
		}
		return "", err
	}
	return path, nil
}

// Dir returns the covers directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Check reports whether the covers directory is still a writable directory.
func (s *Store) Check(ctx context.Context) error {
	f, err := os.CreateTemp(s.dir, ".check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Store) save(ctx context.Context, bookID uuid.UUID, ext string, r io.Reader) (string, error) {
	name := fmt.Sprintf("cover_%s_%d%s", bookID, time.Now().UnixNano(), ext)
	if err := s.writeAtomic(name, r); err != nil {
		return "", err
	}

	if err := s.books.SetCoverImage(ctx, bookID, name); err != nil {
		os.Remove(filepath.Join(s.dir, name))
		return "", err
	}
	s.removeStale(bookID, name)
	return name, nil
}

// writeAtomic copies r into a temp file in the covers directory and renames
// it to name.
func (s *Store) writeAtomic(name string, r io.Reader) error {
	tmpFile, err := os.CreateTemp(s.dir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmpFile, io.LimitReader(r, maxCoverSize+1))
	if err != nil {
		return err
	}
	if n > maxCoverSize {
		return repoerr.Validation("cover", "image is larger than 10MB")
	}
	if n == 0 {
		return repoerr.Validation("cover", "image is empty")
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(s.dir, name))
}

// removeStale deletes older covers of the same book.
func (s *Store) removeStale(bookID uuid.UUID, keep string) {
	matches, err := filepath.Glob(filepath.Join(s.dir, fmt.Sprintf("cover_%s_*", bookID)))
	if err != nil {
		return
	}
	for _, match := range matches {
		if filepath.Base(match) != keep {
			os.Remove(match)
		}
	}
}

func mediaType(contentType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
}

func extensionFor(contentType, url string) string {
	if ext, ok := contentTypeExtensions[mediaType(contentType)]; ok {
		return ext
	}
	if ext := strings.ToLower(filepath.Ext(url)); allowedExtensions[ext] {
		return ext
	}
	return ".jpg"
}
