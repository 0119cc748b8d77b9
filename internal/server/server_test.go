package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidpull/vidpull/internal/download"
	"github.com/vidpull/vidpull/internal/extractor"
	"github.com/vidpull/vidpull/internal/model"
	"github.com/vidpull/vidpull/internal/storage"
	"github.com/vidpull/vidpull/internal/taskstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDownloader struct {
	info    *extractor.Info
	infoErr error
	result  *download.Result
	events  []extractor.ProgressEvent
}

func (f *fakeDownloader) GetInfo(ctx context.Context, url string) (*extractor.Info, error) {
	return f.info, f.infoErr
}

func (f *fakeDownloader) Download(ctx context.Context, url string, opts download.Options, sink extractor.ProgressSink) *download.Result {
	if sink != nil {
		for _, ev := range f.events {
			sink.HandleProgress(ev)
		}
	}
	return f.result
}

// fakeObjectStore records uploads and serves canned listing results.
type fakeObjectStore struct {
	mu        sync.Mutex
	uploads   []string // {uploader}/{title} keys
	uploadErr error
}

func (f *fakeObjectStore) Bucket() string { return "test-bucket" }
func (f *fakeObjectStore) Region() string { return "ap-test" }

func (f *fakeObjectStore) UploadFolder(_ context.Context, _, uploader, title string) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, uploader+"/"+title)
	return &storage.UploadResult{Total: 1, Uploaded: 1}, nil
}

func (f *fakeObjectStore) uploadKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

func (f *fakeObjectStore) List(_ context.Context, _, _ string, _ int) (*storage.Listing, error) {
	return &storage.Listing{}, nil
}

func (f *fakeObjectStore) DeleteFolder(_ context.Context, _ string) (int, error) { return 0, nil }
func (f *fakeObjectStore) DeleteFile(_ context.Context, _ string) error          { return nil }

func (f *fakeObjectStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func newTestServer(dl Downloader) (*Server, *taskstore.MemoryStore) {
	store := taskstore.NewMemoryStore()
	srv := New(store, dl, nil, nil, log.New(io.Discard, "", 0), "test")
	return srv, store
}

func newTestServerWithStorage(dl Downloader, st ObjectStore) (*Server, *taskstore.MemoryStore) {
	store := taskstore.NewMemoryStore()
	srv := New(store, dl, st, nil, log.New(io.Discard, "", 0), "test")
	return srv, store
}

func doRequest(srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func waitForStatus(t *testing.T, store taskstore.Store, id string, status model.TaskStatus) *model.DownloadTask {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if task, ok := store.Get(id); ok && task.Status == status {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached status %s", id, status)
	return nil
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{})

	rec := doRequest(srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestVersion(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{})

	rec := doRequest(srv, http.MethodGet, "/api/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["version"] != "test" {
		t.Errorf("Expected version 'test', got %q", body["version"])
	}
}

func TestInfoRequiresURL(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{})

	rec := doRequest(srv, http.MethodGet, "/api/info", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestInfoVideo(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{
		info: &extractor.Info{
			Kind: extractor.KindItem,
			Item: &extractor.Item{
				ID:           "abc123",
				Title:        "Test: Video",
				Uploader:     "Creator",
				Duration:     120,
				Thumbnail:    "https://i.example/abc123.jpg",
				Subtitles:    []string{"en", "ja"},
				AutoCaptions: []string{"en"},
			},
		},
	})

	rec := doRequest(srv, http.MethodGet, "/api/info?url=https://www.youtube.com/watch?v=abc123", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["type"] != "video" {
		t.Errorf("Expected type video, got %v", body["type"])
	}
	if body["title"] != "Test: Video" {
		t.Errorf("Expected title 'Test: Video', got %v", body["title"])
	}
	if body["thumbnail"] != "https://i.example/abc123.jpg" {
		t.Errorf("Expected thumbnail url, got %v", body["thumbnail"])
	}
	if subs, ok := body["subtitles"].([]any); !ok || len(subs) != 2 {
		t.Errorf("Expected 2 subtitle languages, got %v", body["subtitles"])
	}
	// expected_path uses the sanitized uploader/title pair
	if body["expected_path"] != "Creator/Test Video" {
		t.Errorf("Expected sanitized path 'Creator/Test Video', got %v", body["expected_path"])
	}
}

func TestInfoCollection(t *testing.T) {
	entries := make([]extractor.Entry, 0, 12)
	for _, id := range []string{"v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v9", "v10", "v11", "v12"} {
		entries = append(entries, extractor.Entry{ID: id, Title: "Video " + id})
	}
	srv, _ := newTestServer(&fakeDownloader{
		info: &extractor.Info{
			Kind: extractor.KindCollection,
			Collection: &extractor.Collection{
				ID:      "PL1",
				Title:   "My List",
				Entries: entries,
			},
		},
	})

	rec := doRequest(srv, http.MethodGet, "/api/info?url=https://www.youtube.com/playlist?list=PL1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["video_count"] != float64(12) {
		t.Errorf("Expected video_count 12, got %v", body["video_count"])
	}
	videos, ok := body["videos"].([]any)
	if !ok || len(videos) != 10 {
		t.Fatalf("Expected a 10-entry preview, got %v", body["videos"])
	}
	first, _ := videos[0].(map[string]any)
	if first["id"] != "v1" {
		t.Errorf("Expected first preview entry v1, got %v", first["id"])
	}
}

func TestDownloadLifecycle(t *testing.T) {
	srv, store := newTestServer(&fakeDownloader{
		result: &download.Result{
			Success: true,
			Type:    "video",
			Title:   "Test Video",
			Dir:     "/downloads/Creator/Test Video",
		},
		events: []extractor.ProgressEvent{
			{Phase: extractor.PhaseDownloading, DownloadedBytes: 50 << 20, TotalBytes: 100 << 20},
			{Phase: extractor.PhaseFinished, Filename: "/downloads/Creator/Test Video/Test Video.mp4"},
		},
	})

	rec := doRequest(srv, http.MethodPost, "/api/download", model.DownloadRequest{URL: "https://www.youtube.com/watch?v=abc123"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.DownloadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TaskID == "" {
		t.Fatal("Expected a task id")
	}

	task := waitForStatus(t, store, resp.TaskID, model.TaskStatusCompleted)
	if task.Progress != 100 {
		t.Errorf("Expected progress 100, got %f", task.Progress)
	}
	if task.Title != "Test Video" {
		t.Errorf("Expected title 'Test Video', got %q", task.Title)
	}
	if task.Filename != "/downloads/Creator/Test Video/Test Video.mp4" {
		t.Errorf("Unexpected filename %q", task.Filename)
	}
	if task.CompletedAt == nil {
		t.Error("Expected completion timestamp")
	}
}

func TestDownloadFailure(t *testing.T) {
	srv, store := newTestServer(&fakeDownloader{
		result: &download.Result{Success: false, Error: "extraction failed"},
	})

	rec := doRequest(srv, http.MethodPost, "/api/download", model.DownloadRequest{URL: "https://www.youtube.com/watch?v=bad"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}

	var resp model.DownloadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	task := waitForStatus(t, store, resp.TaskID, model.TaskStatusFailed)
	if task.Error != "extraction failed" {
		t.Errorf("Expected error message, got %q", task.Error)
	}
}

func TestDownloadValidation(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{})

	rec := doRequest(srv, http.MethodPost, "/api/download", map[string]any{"format": "best"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing url, got %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/api/download", map[string]any{
		"url":        "https://www.youtube.com/watch?v=abc",
		"sort_order": "bogus",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad sort order, got %d", rec.Code)
	}
}

func TestBatchDownload(t *testing.T) {
	srv, store := newTestServer(&fakeDownloader{
		result: &download.Result{Success: true, Type: "video"},
	})

	rec := doRequest(srv, http.MethodPost, "/api/download/batch", model.BatchDownloadRequest{
		URLs: []string{"https://www.youtube.com/watch?v=a", "https://www.youtube.com/watch?v=b"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Total int                      `json:"total"`
		Tasks []model.DownloadResponse `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Total != 2 {
		t.Fatalf("Expected 2 tasks, got %d", body.Total)
	}
	for _, resp := range body.Tasks {
		waitForStatus(t, store, resp.TaskID, model.TaskStatusCompleted)
	}
}

func TestBatchDownloadEmpty(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{})

	rec := doRequest(srv, http.MethodPost, "/api/download/batch", model.BatchDownloadRequest{URLs: []string{" "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestListTasksFilterAndLimit(t *testing.T) {
	srv, store := newTestServer(&fakeDownloader{})

	base := time.Now()
	for i, status := range []model.TaskStatus{
		model.TaskStatusCompleted, model.TaskStatusFailed, model.TaskStatusCompleted,
	} {
		store.Create(&model.DownloadTask{
			ID:        string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	rec := doRequest(srv, http.MethodGet, "/api/tasks?status=completed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var list model.TaskListResponse
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Total != 2 {
		t.Errorf("Expected 2 completed tasks, got %d", list.Total)
	}

	rec = doRequest(srv, http.MethodGet, "/api/tasks?limit=1", nil)
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Total != 3 || len(list.Tasks) != 1 {
		t.Errorf("Expected total 3 with 1 returned, got total %d with %d", list.Total, len(list.Tasks))
	}
	if list.Tasks[0].ID != "c" {
		t.Errorf("Expected newest task first, got %q", list.Tasks[0].ID)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{})

	rec := doRequest(srv, http.MethodGet, "/api/tasks/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	srv, store := newTestServer(&fakeDownloader{})
	store.Create(&model.DownloadTask{ID: "t1", Status: model.TaskStatusCompleted, CreatedAt: time.Now()})

	rec := doRequest(srv, http.MethodDelete, "/api/tasks/t1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if _, ok := store.Get("t1"); ok {
		t.Error("Expected task to be gone")
	}

	rec = doRequest(srv, http.MethodDelete, "/api/tasks/t1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on repeat delete, got %d", rec.Code)
	}
}

func TestClearFinishedTasks(t *testing.T) {
	srv, store := newTestServer(&fakeDownloader{})
	store.Create(&model.DownloadTask{ID: "done", Status: model.TaskStatusCompleted, CreatedAt: time.Now()})
	store.Create(&model.DownloadTask{ID: "busy", Status: model.TaskStatusDownloading, CreatedAt: time.Now()})

	rec := doRequest(srv, http.MethodDelete, "/api/tasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]int
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["removed"] != 1 {
		t.Errorf("Expected 1 removed, got %d", body["removed"])
	}
	if _, ok := store.Get("busy"); !ok {
		t.Error("Expected running task to survive")
	}
}

func TestDownloadAutoUploads(t *testing.T) {
	objects := &fakeObjectStore{}
	srv, store := newTestServerWithStorage(&fakeDownloader{
		result: &download.Result{
			Success: true,
			Type:    "video",
			Title:   "Test Video",
			Dir:     "/downloads/Creator/Test Video",
		},
	}, objects)

	rec := doRequest(srv, http.MethodPost, "/api/download", model.DownloadRequest{URL: "https://www.youtube.com/watch?v=abc123"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	var resp model.DownloadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	waitFor(t, "task never marked uploaded", func() bool {
		task, ok := store.Get(resp.TaskID)
		return ok && task.Uploaded
	})

	keys := objects.uploadKeys()
	if len(keys) != 1 || keys[0] != "Creator/Test Video" {
		t.Errorf("Expected one upload of 'Creator/Test Video', got %v", keys)
	}
	task, _ := store.Get(resp.TaskID)
	if task.Warning != "" {
		t.Errorf("Expected no warning, got %q", task.Warning)
	}
}

func TestDownloadAutoUploadFailureBecomesWarning(t *testing.T) {
	objects := &fakeObjectStore{uploadErr: errors.New("bucket unreachable")}
	srv, store := newTestServerWithStorage(&fakeDownloader{
		result: &download.Result{
			Success: true,
			Type:    "video",
			Title:   "Test Video",
			Dir:     "/downloads/Creator/Test Video",
		},
	}, objects)

	rec := doRequest(srv, http.MethodPost, "/api/download", model.DownloadRequest{URL: "https://www.youtube.com/watch?v=abc123"})
	var resp model.DownloadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	waitFor(t, "upload failure never surfaced as warning", func() bool {
		task, ok := store.Get(resp.TaskID)
		return ok && strings.Contains(task.Warning, "storage upload failed")
	})

	task, _ := store.Get(resp.TaskID)
	if task.Status != model.TaskStatusCompleted {
		t.Errorf("Expected task to stay completed, got %s", task.Status)
	}
	if task.Uploaded {
		t.Error("Expected uploaded flag unset after failure")
	}
}

func TestDownloadAutoUploadSkipsCollections(t *testing.T) {
	objects := &fakeObjectStore{}
	srv, store := newTestServerWithStorage(&fakeDownloader{
		result: &download.Result{
			Success: true,
			Type:    "channel",
			Title:   "My Channel",
			Dir:     "/downloads",
			Total:   2,
			Videos:  []download.ItemResult{{ID: "v1"}, {ID: "v2"}},
		},
	}, objects)

	rec := doRequest(srv, http.MethodPost, "/api/download", model.DownloadRequest{URL: "https://www.youtube.com/@creator/videos"})
	var resp model.DownloadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	waitForStatus(t, store, resp.TaskID, model.TaskStatusCompleted)
	time.Sleep(20 * time.Millisecond)

	if keys := objects.uploadKeys(); len(keys) != 0 {
		t.Errorf("Expected no uploads for a collection result, got %v", keys)
	}
}

func TestStorageStatusConfigured(t *testing.T) {
	srv, _ := newTestServerWithStorage(&fakeDownloader{}, &fakeObjectStore{})

	rec := doRequest(srv, http.MethodGet, "/api/cos/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["enabled"] != true {
		t.Errorf("Expected enabled true, got %v", body["enabled"])
	}
	if body["bucket"] != "test-bucket" {
		t.Errorf("Expected bucket 'test-bucket', got %v", body["bucket"])
	}
}

func TestStorageStatusUnconfigured(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{})

	rec := doRequest(srv, http.MethodGet, "/api/cos/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["enabled"] != false {
		t.Errorf("Expected enabled false, got %v", body["enabled"])
	}
}

func TestStorageEndpointsUnavailable(t *testing.T) {
	srv, _ := newTestServer(&fakeDownloader{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/cos/videos"},
		{http.MethodDelete, "/api/cos/folder?prefix=a/"},
		{http.MethodDelete, "/api/cos/file?key=a/b.mp4"},
		{http.MethodGet, "/api/cos/url?key=a/b.mp4"},
		{http.MethodPost, "/api/cos/upload/t1"},
	}
	for _, p := range paths {
		rec := doRequest(srv, p.method, p.path, nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: expected 503, got %d", p.method, p.path, rec.Code)
		}
	}
}
