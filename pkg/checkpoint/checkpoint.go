package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"igvision/pkg/logger"
)

// Checkpoint represents the state of a scrape session. It remembers the
// actor run and its dataset so an interrupted session can be resumed
// without starting (and paying for) a new run.
type Checkpoint struct {
	Username        string            `json:"username"`
	RunID           string            `json:"run_id"`
	DatasetID       string            `json:"dataset_id"`
	ResultsLimit    int               `json:"results_limit"`
	DownloadedMedia map[string]string `json:"downloaded_media"` // file name -> saved path
	TotalQueued     int               `json:"total_queued"`
	TotalDownloaded int               `json:"total_downloaded"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Version         int               `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a new checkpoint manager for a username
func NewManager(username string) (*Manager, error) {
	checkpointsDir := filepath.Join(xdg.DataHome, "igvision", "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	checkpointPath := filepath.Join(checkpointsDir, fmt.Sprintf("%s.checkpoint.json", username))

	return &Manager{
		checkpointPath: checkpointPath,
		logger:         logger.GetLogger(),
	}, nil
}

// Create creates a new checkpoint for a started actor run
func (m *Manager) Create(username, runID, datasetID string, resultsLimit int) (*Checkpoint, error) {
	checkpoint := &Checkpoint{
		Username:        username,
		RunID:           runID,
		DatasetID:       datasetID,
		ResultsLimit:    resultsLimit,
		DownloadedMedia: make(map[string]string),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
		Version:         1,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("Checkpoint created", map[string]interface{}{
		"username": username,
		"run_id":   runID,
		"path":     m.checkpointPath,
	})

	return checkpoint, nil
}

// Load loads an existing checkpoint. It returns (nil, nil) when no
// checkpoint exists for the username.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.DownloadedMedia == nil {
		checkpoint.DownloadedMedia = make(map[string]string)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"username":         checkpoint.Username,
		"run_id":           checkpoint.RunID,
		"total_downloaded": checkpoint.TotalDownloaded,
		"updated_at":       checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"username":         checkpoint.Username,
		"total_downloaded": checkpoint.TotalDownloaded,
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// RecordDownload records a successfully downloaded media file
func (m *Manager) RecordDownload(checkpoint *Checkpoint, fileName, savedPath string) error {
	if _, exists := checkpoint.DownloadedMedia[fileName]; !exists {
		checkpoint.TotalDownloaded++
	}
	checkpoint.DownloadedMedia[fileName] = savedPath
	return m.Save(checkpoint)
}

// IsMediaDownloaded checks if a media file was recorded as downloaded
func (checkpoint *Checkpoint) IsMediaDownloaded(fileName string) bool {
	_, exists := checkpoint.DownloadedMedia[fileName]
	return exists
}

// Resumable reports whether the checkpoint points at a dataset that can
// be refetched without a new actor run
func (checkpoint *Checkpoint) Resumable() bool {
	return checkpoint != nil && checkpoint.DatasetID != ""
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"username":         checkpoint.Username,
		"run_id":           checkpoint.RunID,
		"dataset_id":       checkpoint.DatasetID,
		"total_downloaded": checkpoint.TotalDownloaded,
		"created_at":       checkpoint.CreatedAt,
		"updated_at":       checkpoint.UpdatedAt,
		"age":              time.Since(checkpoint.UpdatedAt),
	}, nil
}
