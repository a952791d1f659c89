// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションの削除と、どの投稿からも参照されていない
// 孤児画像Blobの掃除を日次バッチで行う。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// defaultOrphanGrace は孤児Blob削除までの猶予期間のデフォルト値。
// アップロード済みで投稿レコード保存前のBlobを誤って削除しないための猶予。
const defaultOrphanGrace = 24 * time.Hour

// SessionCleaner は期限切れセッション削除のインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ReferencedImageLister は投稿が参照している画像Blob名の集合を返すインターフェース。
type ReferencedImageLister interface {
	ListReferencedImages(ctx context.Context) (map[string]struct{}, error)
}

// BlobSweeper は孤児Blobの掃除に必要なインターフェース。
// storage.DiskBlobStoreがそのまま満たす。
type BlobSweeper interface {
	Dir() string
	Remove(name string) error
}

// CleanupJob は期限切れセッションと孤児Blobの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessions    SessionCleaner
	posts       ReferencedImageLister
	blobs       BlobSweeper
	logger      *slog.Logger
	OrphanGrace time.Duration // 孤児Blob削除までの猶予期間（デフォルト: 24時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// blobsがnilの場合はBlob掃除をスキップする。
func NewCleanupJob(sessions SessionCleaner, posts ReferencedImageLister, blobs BlobSweeper, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions:    sessions,
		posts:       posts,
		blobs:       blobs,
		logger:      logger,
		OrphanGrace: defaultOrphanGrace,
	}
}

// Run は期限切れセッションの削除と孤児Blobの掃除を順に実行する。
// 一方の失敗が他方をブロックしないよう、両方を実行してからエラーをまとめて返す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	sessErr := j.cleanupSessions(ctx)

	var blobErr error
	if j.blobs != nil {
		blobErr = j.sweepOrphanBlobs(ctx)
	}

	return errors.Join(sessErr, blobErr)
}

// cleanupSessions は期限切れセッションを削除する。
func (j *CleanupJob) cleanupSessions(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	j.logger.Info("期限切れセッションの削除が完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// sweepOrphanBlobs はどの投稿からも参照されていない画像Blobを削除する。
// 猶予期間内のBlobはアップロード直後（投稿保存前）の可能性があるため残す。
func (j *CleanupJob) sweepOrphanBlobs(ctx context.Context) error {
	start := time.Now()

	referenced, err := j.posts.ListReferencedImages(ctx)
	if err != nil {
		j.logger.Error("参照中Blob一覧の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("参照中Blob一覧の取得に失敗: %w", err)
	}

	entries, err := os.ReadDir(j.blobs.Dir())
	if err != nil {
		j.logger.Error("Blobディレクトリの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("Blobディレクトリの読み取りに失敗: %w", err)
	}

	var removed int64
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		// アップロード途中の一時ファイルなどドット始まりは対象外
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := referenced[name]; ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) <= j.OrphanGrace {
			continue
		}

		if err := j.blobs.Remove(name); err != nil {
			j.logger.Warn("孤児Blobの削除に失敗しました",
				slog.String("blob", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	j.logger.Info("孤児Blobの掃除が完了しました",
		slog.Int64("removed_count", removed),
		slog.Int("referenced_count", len(referenced)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
