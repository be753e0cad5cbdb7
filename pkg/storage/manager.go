package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// MediaKind separates the two media subdirectories
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Manager materializes the per-user directory tree
// {root}/{username}/{images,videos}/ and owns every file written into it:
// sequentially named media files plus the metadata and analysis JSON
// documents at the username root.
type Manager struct {
	baseDir   string
	imagesDir string
	videosDir string
	existing  map[string]bool
	mu        sync.RWMutex
}

// NewManager creates the directory tree for a username under root
func NewManager(root, username string) (*Manager, error) {
	baseDir := filepath.Join(root, username)
	imagesDir := filepath.Join(baseDir, "images")
	videosDir := filepath.Join(baseDir, "videos")

	for _, dir := range []string{baseDir, imagesDir, videosDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	m := &Manager{
		baseDir:   baseDir,
		imagesDir: imagesDir,
		videosDir: videosDir,
		existing:  make(map[string]bool),
	}

	if err := m.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return m, nil
}

// scanExistingFiles records already downloaded media so re-runs skip them
func (m *Manager) scanExistingFiles() error {
	for _, dir := range []string{m.imagesDir, m.videosDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				m.existing[entry.Name()] = true
			}
		}
	}
	return nil
}

// FileExtension derives a file extension from a media URL path, falling
// back to a sensible default per media kind
func FileExtension(mediaURL string, kind MediaKind) string {
	if parsed, err := url.Parse(mediaURL); err == nil {
		if ext := strings.ToLower(path.Ext(parsed.Path)); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	if kind == KindVideo {
		return ".mp4"
	}
	return ".jpg"
}

// MediaFileName builds the sequential media file name: post_N.ext for
// top-level media, post_N_carousel_J.ext for carousel children. Indexes
// are 1-based.
func MediaFileName(kind MediaKind, postIndex, carouselIndex int, mediaURL string) string {
	ext := FileExtension(mediaURL, kind)
	if carouselIndex > 0 {
		return fmt.Sprintf("post_%d_carousel_%d%s", postIndex, carouselIndex, ext)
	}
	return fmt.Sprintf("post_%d%s", postIndex, ext)
}

// IsDownloaded checks if a media file with the given name already exists
func (m *Manager) IsDownloaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.existing[name]
}

// SaveMedia writes media bytes into the images or videos subdirectory
// via a temp file and atomic rename. It returns the final path.
func (m *Manager) SaveMedia(r io.Reader, kind MediaKind, name string) (string, error) {
	dir := m.imagesDir
	if kind == KindVideo {
		dir = m.videosDir
	}
	filename := filepath.Join(dir, name)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save media data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.existing[name] = true
	m.mu.Unlock()

	return filename, nil
}

// MediaPath returns the path a media file would be saved under, whether
// or not it exists yet
func (m *Manager) MediaPath(kind MediaKind, name string) string {
	if kind == KindVideo {
		return filepath.Join(m.videosDir, name)
	}
	return filepath.Join(m.imagesDir, name)
}

// WriteMetadata persists the raw dataset bytes as metadata.json,
// re-indented for readability. Existing files are overwritten.
func (m *Manager) WriteMetadata(raw []byte, fileName string) error {
	var indented bytes.Buffer
	if err := json.Indent(&indented, raw, "", "  "); err != nil {
		return fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	return m.writeDocument(fileName, indented.Bytes())
}

// WriteAnalysis persists analysis results as an indented JSON document.
// Existing files are overwritten.
func (m *Manager) WriteAnalysis(results interface{}, fileName string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analysis results: %w", err)
	}
	return m.writeDocument(fileName, data)
}

// WriteReport persists the Markdown report at the username root
func (m *Manager) WriteReport(content []byte, fileName string) error {
	return m.writeDocument(fileName, content)
}

// writeDocument atomically writes a document at the username root
func (m *Manager) writeDocument(fileName string, data []byte) error {
	target := filepath.Join(m.baseDir, fileName)
	tempFile := target + ".tmp"

	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace %s: %w", fileName, err)
	}

	return nil
}

// BaseDir returns the username root directory
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// ImagesDir returns the images subdirectory
func (m *Manager) ImagesDir() string {
	return m.imagesDir
}

// VideosDir returns the videos subdirectory
func (m *Manager) VideosDir() string {
	return m.videosDir
}

// DownloadedCount returns the number of media files present
func (m *Manager) DownloadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.existing)
}
