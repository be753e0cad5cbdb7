package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

// newTestManager redirects the XDG data home into a temp directory so
// tests never touch real checkpoints
func newTestManager(t *testing.T, username string) *Manager {
	t.Helper()

	t.Setenv("XDG_DATA_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	manager, err := NewManager(username)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return manager
}

func TestCreateAndLoad(t *testing.T) {
	manager := newTestManager(t, "testuser")

	created, err := manager.Create("testuser", "run-123", "dataset-456", 25)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.Username != "testuser" {
		t.Errorf("Expected username testuser, got %s", created.Username)
	}
	if created.RunID != "run-123" {
		t.Errorf("Expected run ID run-123, got %s", created.RunID)
	}
	if created.DatasetID != "dataset-456" {
		t.Errorf("Expected dataset ID dataset-456, got %s", created.DatasetID)
	}
	if created.ResultsLimit != 25 {
		t.Errorf("Expected results limit 25, got %d", created.ResultsLimit)
	}
	if created.Version != 1 {
		t.Errorf("Expected version 1, got %d", created.Version)
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected a checkpoint, got nil")
	}
	if loaded.Username != created.Username || loaded.RunID != created.RunID {
		t.Errorf("Loaded checkpoint differs: %+v vs %+v", loaded, created)
	}
	if loaded.DownloadedMedia == nil {
		t.Error("Expected non-nil downloaded media map")
	}
}

func TestLoadMissingCheckpoint(t *testing.T) {
	manager := newTestManager(t, "nobody")

	checkpoint, err := manager.Load()
	if err != nil {
		t.Fatalf("Load of missing checkpoint should not error: %v", err)
	}
	if checkpoint != nil {
		t.Error("Expected nil checkpoint when none exists")
	}
}

func TestSaveIsAtomic(t *testing.T) {
	manager := newTestManager(t, "testuser")

	checkpoint, err := manager.Create("testuser", "run-1", "dataset-1", 10)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	before := checkpoint.UpdatedAt
	time.Sleep(10 * time.Millisecond)

	checkpoint.TotalQueued = 12
	if err := manager.Save(checkpoint); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !checkpoint.UpdatedAt.After(before) {
		t.Error("Expected UpdatedAt to advance on save")
	}

	// No leftover temp file
	if _, err := os.Stat(manager.checkpointPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary checkpoint file was not cleaned up")
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.TotalQueued != 12 {
		t.Errorf("Expected total queued 12, got %d", loaded.TotalQueued)
	}
}

func TestRecordDownload(t *testing.T) {
	manager := newTestManager(t, "testuser")

	checkpoint, err := manager.Create("testuser", "run-1", "dataset-1", 10)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := manager.RecordDownload(checkpoint, "post_1.jpg", "/tmp/images/post_1.jpg"); err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}
	if checkpoint.TotalDownloaded != 1 {
		t.Errorf("Expected 1 downloaded, got %d", checkpoint.TotalDownloaded)
	}

	// Recording the same file again must not double count
	if err := manager.RecordDownload(checkpoint, "post_1.jpg", "/tmp/images/post_1.jpg"); err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}
	if checkpoint.TotalDownloaded != 1 {
		t.Errorf("Expected still 1 downloaded after duplicate, got %d", checkpoint.TotalDownloaded)
	}

	if err := manager.RecordDownload(checkpoint, "post_2.mp4", "/tmp/videos/post_2.mp4"); err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}
	if checkpoint.TotalDownloaded != 2 {
		t.Errorf("Expected 2 downloaded, got %d", checkpoint.TotalDownloaded)
	}

	if !checkpoint.IsMediaDownloaded("post_1.jpg") {
		t.Error("Expected post_1.jpg to be recorded")
	}
	if checkpoint.IsMediaDownloaded("post_3.jpg") {
		t.Error("Did not expect post_3.jpg to be recorded")
	}

	// Records survive a reload
	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.TotalDownloaded != 2 {
		t.Errorf("Expected 2 downloaded after reload, got %d", loaded.TotalDownloaded)
	}
	if loaded.DownloadedMedia["post_1.jpg"] != "/tmp/images/post_1.jpg" {
		t.Errorf("Unexpected saved path: %s", loaded.DownloadedMedia["post_1.jpg"])
	}
}

func TestDeleteAndExists(t *testing.T) {
	manager := newTestManager(t, "testuser")

	if manager.Exists() {
		t.Error("Did not expect checkpoint to exist yet")
	}

	if _, err := manager.Create("testuser", "run-1", "dataset-1", 10); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !manager.Exists() {
		t.Error("Expected checkpoint to exist after create")
	}

	if err := manager.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if manager.Exists() {
		t.Error("Expected checkpoint to be gone after delete")
	}

	// Deleting again is a no-op
	if err := manager.Delete(); err != nil {
		t.Errorf("Delete of missing checkpoint should not error: %v", err)
	}
}

func TestResumable(t *testing.T) {
	var nilCheckpoint *Checkpoint
	if nilCheckpoint.Resumable() {
		t.Error("Nil checkpoint must not be resumable")
	}

	empty := &Checkpoint{Username: "testuser"}
	if empty.Resumable() {
		t.Error("Checkpoint without dataset ID must not be resumable")
	}

	ready := &Checkpoint{Username: "testuser", DatasetID: "dataset-1"}
	if !ready.Resumable() {
		t.Error("Checkpoint with dataset ID should be resumable")
	}
}

func TestGetCheckpointInfo(t *testing.T) {
	manager := newTestManager(t, "testuser")

	info, err := manager.GetCheckpointInfo()
	if err != nil {
		t.Fatalf("GetCheckpointInfo failed: %v", err)
	}
	if info != nil {
		t.Error("Expected nil info without a checkpoint")
	}

	checkpoint, err := manager.Create("testuser", "run-1", "dataset-1", 10)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := manager.RecordDownload(checkpoint, "post_1.jpg", "/tmp/post_1.jpg"); err != nil {
		t.Fatalf("RecordDownload failed: %v", err)
	}

	info, err = manager.GetCheckpointInfo()
	if err != nil {
		t.Fatalf("GetCheckpointInfo failed: %v", err)
	}
	if info["username"] != "testuser" {
		t.Errorf("Unexpected username in info: %v", info["username"])
	}
	if info["dataset_id"] != "dataset-1" {
		t.Errorf("Unexpected dataset ID in info: %v", info["dataset_id"])
	}
	if info["total_downloaded"] != 1 {
		t.Errorf("Unexpected total downloaded in info: %v", info["total_downloaded"])
	}
}

func TestCheckpointPathPerUsername(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	alice, err := NewManager("alice")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	bob, err := NewManager("bob")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if alice.checkpointPath == bob.checkpointPath {
		t.Error("Expected per-username checkpoint paths")
	}
	if filepath.Base(alice.checkpointPath) != "alice.checkpoint.json" {
		t.Errorf("Unexpected checkpoint file name: %s", filepath.Base(alice.checkpointPath))
	}

	if _, err := alice.Create("alice", "run-a", "dataset-a", 5); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	fromBob, err := bob.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if fromBob != nil {
		t.Error("Expected bob to have no checkpoint")
	}
}
