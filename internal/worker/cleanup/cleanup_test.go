package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// --- モック定義 ---

type mockSessionCleaner struct {
	deleteExpiredFn func(ctx context.Context) (int64, error)
	calls           int
}

func (m *mockSessionCleaner) DeleteExpired(ctx context.Context) (int64, error) {
	m.calls++
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockImageLister struct {
	listFn func(ctx context.Context) (map[string]struct{}, error)
}

func (m *mockImageLister) ListReferencedImages(ctx context.Context) (map[string]struct{}, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return map[string]struct{}{}, nil
}

// dirSweeper はテスト用ディレクトリを直接操作するBlobSweeper実装。
type dirSweeper struct {
	dir       string
	removeErr error
	removed   []string
}

func (s *dirSweeper) Dir() string { return s.dir }

func (s *dirSweeper) Remove(name string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, name)
	return os.Remove(filepath.Join(s.dir, name))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// writeBlob は指定した経過時間のBlobファイルをディレクトリに作る。
func writeBlob(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("blob"), 0o644); err != nil {
		t.Fatalf("failed to write blob: %v", err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
}

// --- テスト ---

func TestRun_DeletesExpiredSessions(t *testing.T) {
	sessions := &mockSessionCleaner{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 3, nil
		},
	}
	job := NewCleanupJob(sessions, &mockImageLister{}, nil, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sessions.calls != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", sessions.calls)
	}
}

func TestRun_NoExpiredSessions_Succeeds(t *testing.T) {
	// 削除対象ゼロでもエラーにならないこと（冪等性）
	job := NewCleanupJob(&mockSessionCleaner{}, &mockImageLister{}, nil, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRun_SessionError_Propagates(t *testing.T) {
	sessions := &mockSessionCleaner{
		deleteExpiredFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New("db down")
		},
	}
	job := NewCleanupJob(sessions, &mockImageLister{}, nil, testLogger())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run() should return error when session cleanup fails")
	}
}

func TestRun_RemovesOrphanBlobsPastGrace(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, "orphan.jpg", 48*time.Hour)
	writeBlob(t, dir, "referenced.jpg", 48*time.Hour)

	posts := &mockImageLister{
		listFn: func(ctx context.Context) (map[string]struct{}, error) {
			return map[string]struct{}{"referenced.jpg": {}}, nil
		},
	}
	sweeper := &dirSweeper{dir: dir}
	job := NewCleanupJob(&mockSessionCleaner{}, posts, sweeper, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sweeper.removed) != 1 || sweeper.removed[0] != "orphan.jpg" {
		t.Errorf("removed = %v, want [orphan.jpg]", sweeper.removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "referenced.jpg")); err != nil {
		t.Error("referenced blob should not be removed")
	}
}

func TestRun_KeepsRecentOrphanBlobs(t *testing.T) {
	// 猶予期間内のBlobは投稿保存前の可能性があるため残すこと
	dir := t.TempDir()
	writeBlob(t, dir, "fresh-orphan.jpg", time.Hour)

	sweeper := &dirSweeper{dir: dir}
	job := NewCleanupJob(&mockSessionCleaner{}, &mockImageLister{}, sweeper, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sweeper.removed) != 0 {
		t.Errorf("removed = %v, want none", sweeper.removed)
	}
}

func TestRun_SkipsDotFilesAndDirectories(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, ".upload-tmp-123", 48*time.Hour)
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	sweeper := &dirSweeper{dir: dir}
	job := NewCleanupJob(&mockSessionCleaner{}, &mockImageLister{}, sweeper, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sweeper.removed) != 0 {
		t.Errorf("removed = %v, want none", sweeper.removed)
	}
}

func TestRun_NilBlobSweeper_SkipsSweep(t *testing.T) {
	listCalled := false
	posts := &mockImageLister{
		listFn: func(ctx context.Context) (map[string]struct{}, error) {
			listCalled = true
			return map[string]struct{}{}, nil
		},
	}
	job := NewCleanupJob(&mockSessionCleaner{}, posts, nil, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if listCalled {
		t.Error("blob sweep should be skipped when sweeper is nil")
	}
}

func TestRun_ReferencedListError_DoesNotBlockSessions(t *testing.T) {
	// Blob掃除が失敗してもセッション削除は実行されること
	dir := t.TempDir()
	sessions := &mockSessionCleaner{}
	posts := &mockImageLister{
		listFn: func(ctx context.Context) (map[string]struct{}, error) {
			return nil, errors.New("db down")
		},
	}
	job := NewCleanupJob(sessions, posts, &dirSweeper{dir: dir}, testLogger())

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("Run() should return error when blob sweep fails")
	}
	if sessions.calls != 1 {
		t.Errorf("DeleteExpired calls = %d, want 1", sessions.calls)
	}
}

func TestRun_RemoveFailure_ContinuesSweep(t *testing.T) {
	// 個別Blobの削除失敗は警告して継続し、Runは成功すること
	dir := t.TempDir()
	writeBlob(t, dir, "orphan1.jpg", 48*time.Hour)
	writeBlob(t, dir, "orphan2.jpg", 48*time.Hour)

	sweeper := &dirSweeper{dir: dir, removeErr: errors.New("permission denied")}
	job := NewCleanupJob(&mockSessionCleaner{}, &mockImageLister{}, sweeper, testLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRun_CanceledContext_StopsSweep(t *testing.T) {
	dir := t.TempDir()
	writeBlob(t, dir, "orphan.jpg", 48*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sweeper := &dirSweeper{dir: dir}
	job := NewCleanupJob(&mockSessionCleaner{}, &mockImageLister{}, sweeper, testLogger())

	if err := job.Run(ctx); err == nil {
		t.Fatal("Run() with canceled context should return error")
	}
	if len(sweeper.removed) != 0 {
		t.Errorf("removed = %v, want none after cancellation", sweeper.removed)
	}
}

func TestNewCleanupJob_DefaultGrace(t *testing.T) {
	job := NewCleanupJob(&mockSessionCleaner{}, &mockImageLister{}, nil, testLogger())
	if job.OrphanGrace != 24*time.Hour {
		t.Errorf("OrphanGrace = %v, want %v", job.OrphanGrace, 24*time.Hour)
	}
}
