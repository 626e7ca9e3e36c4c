// Package storage persists uploaded product images on the local
// filesystem, either whole or assembled from chunks.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxChunkSize caps a single uploaded chunk.
	MaxChunkSize = 500 * 1024
	// MaxTotalSize caps the assembled image.
	MaxTotalSize = 5 * 1024 * 1024
)

var (
	ErrChunkTooLarge  = errors.New("chunk exceeds maximum size")
	ErrFileTooLarge   = errors.New("file exceeds maximum size")
	ErrBadExtension   = errors.New("unsupported image extension")
	ErrMissingChunk   = errors.New("missing chunk file")
	ErrInvalidRequest = errors.New("invalid upload request")
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// ProductImage describes a stored image.
type ProductImage struct {
	URL  string `json:"url"`
	Alt  string `json:"alt"`
	Size int64  `json:"size"`
}

// ImageStore writes images under a physical root and exposes them at a
// public base URL. Final files land in date folders, upload/yyyy/m/d.
type ImageStore struct {
	root    string
	baseURL string
}

// NewImageStore creates the root directory if needed.
func NewImageStore(root, baseURL string) (*ImageStore, error) {
	if root == "" {
		return nil, errors.New("storage: root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &ImageStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// NewFileCode issues an opaque identifier tying chunks of one upload
// together.
func NewFileCode() string {
	return uuid.NewString()
}

// SaveChunk stores one chunk of a split upload in the temp area.
func (s *ImageStore) SaveChunk(r io.Reader, fileCode string, chunkIndex int) error {
	fileCode, err := cleanFileCode(fileCode)
	if err != nil {
		return err
	}
	if chunkIndex < 0 {
		return fmt.Errorf("%w: negative chunk index", ErrInvalidRequest)
	}

	tempDir := filepath.Join(s.root, "temp_upload")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return fmt.Errorf("storage: create temp dir: %w", err)
	}
	tempPath := filepath.Join(tempDir, fmt.Sprintf("%s_%d.chunk", fileCode, chunkIndex))

	dst, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("storage: create chunk: %w", err)
	}
	written, err := io.Copy(dst, io.LimitReader(r, MaxChunkSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("storage: write chunk: %w", err)
	}
	if written > MaxChunkSize {
		_ = os.Remove(tempPath)
		return ErrChunkTooLarge
	}
	return nil
}

// MergeChunks concatenates saved chunks into the final image. With
// totalChunks > 0 every index up to it must exist; otherwise merging
// stops at the first gap. Consumed chunks are deleted.
func (s *ImageStore) MergeChunks(fileCode, originalName string, totalChunks int, at time.Time) (ProductImage, error) {
	fileCode, err := cleanFileCode(fileCode)
	if err != nil {
		return ProductImage{}, err
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt[ext] {
		return ProductImage{}, fmt.Errorf("%w: %q", ErrBadExtension, ext)
	}

	tempDir := filepath.Join(s.root, "temp_upload")

	// Size check before assembling anything.
	var totalSize int64
	for i := 0; ; i++ {
		if totalChunks > 0 && i >= totalChunks {
			break
		}
		info, err := os.Stat(s.chunkPath(tempDir, fileCode, i))
		if err != nil {
			if totalChunks > 0 {
				return ProductImage{}, fmt.Errorf("%w: index %d", ErrMissingChunk, i)
			}
			break
		}
		totalSize += info.Size()
		if totalSize > MaxTotalSize {
			return ProductImage{}, ErrFileTooLarge
		}
	}

	publicDir := dateFolder("/upload", at)
	publicFile := publicDir + "/" + fileCode + ext
	finalPath := s.physicalPath(publicFile)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return ProductImage{}, fmt.Errorf("storage: create image dir: %w", err)
	}

	out, err := os.Create(finalPath)
	if err != nil {
		return ProductImage{}, fmt.Errorf("storage: create image: %w", err)
	}
	defer out.Close()

	for i := 0; ; i++ {
		if totalChunks > 0 && i >= totalChunks {
			break
		}
		chunkPath := s.chunkPath(tempDir, fileCode, i)
		chunk, err := os.Open(chunkPath)
		if err != nil {
			if totalChunks > 0 {
				return ProductImage{}, fmt.Errorf("%w: index %d", ErrMissingChunk, i)
			}
			break
		}
		_, err = io.Copy(out, chunk)
		chunk.Close()
		if err != nil {
			return ProductImage{}, fmt.Errorf("storage: merge chunk %d: %w", i, err)
		}
		_ = os.Remove(chunkPath)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return ProductImage{}, fmt.Errorf("storage: stat image: %w", err)
	}
	base := filepath.Base(originalName)
	return ProductImage{
		URL:  s.baseURL + publicFile,
		Alt:  strings.TrimSuffix(base, filepath.Ext(base)),
		Size: info.Size(),
	}, nil
}

// SaveFile stores a complete upload in one call.
func (s *ImageStore) SaveFile(r io.Reader, originalName string, at time.Time) (ProductImage, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt[ext] {
		return ProductImage{}, fmt.Errorf("%w: %q", ErrBadExtension, ext)
	}

	publicDir := dateFolder("/upload", at)
	publicFile := publicDir + "/" + NewFileCode() + ext
	finalPath := s.physicalPath(publicFile)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return ProductImage{}, fmt.Errorf("storage: create image dir: %w", err)
	}

	out, err := os.Create(finalPath)
	if err != nil {
		return ProductImage{}, fmt.Errorf("storage: create image: %w", err)
	}
	written, err := io.Copy(out, io.LimitReader(r, MaxTotalSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(finalPath)
		return ProductImage{}, fmt.Errorf("storage: write image: %w", err)
	}
	if written > MaxTotalSize {
		_ = os.Remove(finalPath)
		return ProductImage{}, ErrFileTooLarge
	}

	base := filepath.Base(originalName)
	return ProductImage{
		URL:  s.baseURL + publicFile,
		Alt:  strings.TrimSuffix(base, filepath.Ext(base)),
		Size: written,
	}, nil
}

func (s *ImageStore) chunkPath(tempDir, fileCode string, index int) string {
	return filepath.Join(tempDir, fmt.Sprintf("%s_%d.chunk", fileCode, index))
}

func (s *ImageStore) physicalPath(publicPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(publicPath, "/")))
}

// cleanFileCode keeps codes path-safe. Codes come from NewFileCode but
// round-trip through the client between chunk and merge calls.
func cleanFileCode(fileCode string) (string, error) {
	fileCode = strings.ReplaceAll(strings.TrimSpace(fileCode), `"`, "")
	if fileCode == "" {
		return "", fmt.Errorf("%w: file code required", ErrInvalidRequest)
	}
	for _, r := range fileCode {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return "", fmt.Errorf("%w: malformed file code", ErrInvalidRequest)
		}
	}
	return fileCode, nil
}

func dateFolder(prefix string, at time.Time) string {
	if at.IsZero() {
		at = time.Now()
	}
	return path.Join(prefix, fmt.Sprintf("%d/%d/%d", at.Year(), int(at.Month()), at.Day()))
}
