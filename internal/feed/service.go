// Package feed はフィード集約のドメインロジックを提供する。
//
// フィードは全投稿を新しい順に並べたもので、表示名による検索で
// 投稿者集合を絞り込める。各投稿には投稿者表示名・先頭画像の公開URL・
// 閲覧者視点のフォロー状態が付加される。
package feed

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/guri/internal/model"
	"github.com/hitoshi/guri/internal/repository"
)

// unknownAuthorName は投稿者表示名が解決できない場合のセンチネル。
const unknownAuthorName = "Unknown User"

// DirectorySearcher は表示名検索のインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type DirectorySearcher interface {
	SearchByName(ctx context.Context, term string) ([]string, error)
}

// FollowStateResolver は閲覧者視点のフォロー状態を一括解決するインターフェース。
type FollowStateResolver interface {
	FollowStates(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error)
}

// URLResolver はBlob名から公開URLを導出するインターフェース。
type URLResolver interface {
	PublicURL(name string) string
}

// MetricsRecorder はフィード照会のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFeedQuery(duration time.Duration)
}

// Service はフィード集約のサービス層。
// 検索 → 投稿取得（表示名JOIN・新しい順） → 画像URL解決 → フォロー状態付加
// のフローを統括する。
type Service struct {
	directory DirectorySearcher
	postRepo  repository.PostRepository
	resolver  FollowStateResolver
	urls      URLResolver
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(
	directory DirectorySearcher,
	postRepo repository.PostRepository,
	resolver FollowStateResolver,
	urls URLResolver,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		directory: directory,
		postRepo:  postRepo,
		resolver:  resolver,
		urls:      urls,
		metrics:   metrics,
	}
}

// ListFeed はviewerに表示するフィードを返す。
//
// queryの前後空白を除いた結果が空の場合は絞り込みなしの全投稿を返す。
// 検索語に一致する表示名がない場合は、全投稿へのフォールバックではなく
// 空のフィードを返す。検索クエリの失敗も「一致なし」として扱われ、
// 警告ログのみ残して空のフィードを返す。
// 結果はposted_atの降順で、同時刻の順序はストア依存。
func (s *Service) ListFeed(ctx context.Context, viewerID, query string) ([]model.FeedEntry, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordFeedQuery(time.Since(start))
		}
	}()

	var authorIDs []string

	term := strings.TrimSpace(query)
	if term != "" {
		ids, err := s.directory.SearchByName(ctx, term)
		if err != nil {
			slog.Warn("user search failed",
				slog.String("term", term),
				slog.String("error", err.Error()),
			)
			return []model.FeedEntry{}, nil
		}
		if len(ids) == 0 {
			return []model.FeedEntry{}, nil
		}
		authorIDs = ids
	}

	rows, err := s.postRepo.ListFeed(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]model.FeedEntry, 0, len(rows))
	for _, row := range rows {
		entry := model.FeedEntry{
			PostID:   row.PostID,
			AuthorID: row.AuthorID,
			Caption:  row.Caption,
			PostedAt: row.PostedAt,
		}

		entry.AuthorName = row.AuthorName
		if !row.AuthorNameValid {
			entry.AuthorName = unknownAuthorName
		}

		// 先頭画像のみ表示に使用する。画像なし投稿はURLなしで返す。
		if len(row.Images) > 0 {
			entry.ImageURL = s.urls.PublicURL(row.Images[0])
		}

		entries = append(entries, entry)
	}

	// 投稿者の重複を除いてフォロー状態を一括解決する
	states, err := s.resolveFollowStates(ctx, viewerID, rows)
	if err != nil {
		slog.Warn("follow state resolution failed",
			slog.String("viewer_id", viewerID),
			slog.String("error", err.Error()),
		)
	} else {
		for i := range entries {
			entries[i].Following = states[entries[i].AuthorID]
		}
	}

	return entries, nil
}

// resolveFollowStates はフィード中の投稿者集合のフォロー状態を解決する。
func (s *Service) resolveFollowStates(ctx context.Context, viewerID string, rows []repository.FeedRow) (map[string]bool, error) {
	seen := map[string]struct{}{}
	authors := []string{}
	for _, row := range rows {
		if _, ok := seen[row.AuthorID]; ok {
			continue
		}
		seen[row.AuthorID] = struct{}{}
		authors = append(authors, row.AuthorID)
	}
	return s.resolver.FollowStates(ctx, viewerID, authors)
}
