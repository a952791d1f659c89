// Package post は投稿作成のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/guri/internal/model"
	"github.com/hitoshi/guri/internal/repository"
	"github.com/hitoshi/guri/internal/security"
	"github.com/hitoshi/guri/internal/storage"
)

// MetricsRecorder は投稿作成のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordPostCreated()
	RecordUploadFailure()
}

// Service は投稿作成のサービス層。
// 画像のBlobアップロード → 投稿レコード保存のフローを統括する。
type Service struct {
	blobs     storage.BlobStore
	postRepo  repository.PostRepository
	sanitizer security.TextSanitizerService
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(
	blobs storage.BlobStore,
	postRepo repository.PostRepository,
	sanitizer security.TextSanitizerService,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		blobs:     blobs,
		postRepo:  postRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// CreatePost は画像とキャプションから新規投稿を作成する。
//
// フロー: Blob名生成 → 画像アップロード → 投稿レコード保存。
// ステップ間にアトミック性はない。アップロード失敗時は投稿保存に
// 進まないため孤児レコードは生じない。アップロード成功後の保存失敗では
// 参照されないBlobが残るが、その場での削除は行わず、クリーンアップ
// ワーカーの掃除に委ねる。
//
// キャプションは省略可能で、省略時は空文字列として保存される。
// どの投稿経路（カメラ撮影・ライブラリ選択・プロフィールからの投稿）
// でも同じ扱いとする。
func (s *Service) CreatePost(ctx context.Context, authorID string, image io.Reader, contentType, caption string) (*model.Post, error) {
	if image == nil {
		return nil, model.NewImageRequiredError()
	}

	blobName := uuid.New().String() + extensionFor(contentType)

	if err := s.blobs.Upload(ctx, blobName, image, contentType); err != nil {
		if s.metrics != nil {
			s.metrics.RecordUploadFailure()
		}
		return nil, model.NewUploadFailedError(err.Error())
	}

	if s.sanitizer != nil {
		caption = s.sanitizer.Sanitize(caption)
	}

	now := time.Now()
	p := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Images:    []string{blobName},
		Caption:   caption,
		PostedAt:  now,
		PostedOn:  truncateToDate(now),
		CreatedAt: now,
	}

	if err := s.postRepo.Create(ctx, p); err != nil {
		// アップロード済みBlobは参照されないまま残る
		slog.Warn("post insert failed after upload, blob left orphaned",
			slog.String("blob", blobName),
			slog.String("author_id", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPostCreated()
	}

	slog.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("author_id", authorID),
		slog.String("blob", blobName),
	)

	return p, nil
}

// extensionFor はContent-Typeから保存時の拡張子を決める。
// 未知のタイプはjpg扱いとする。
func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// truncateToDate は時刻の日付部分のみを残す。
func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
