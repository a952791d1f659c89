// Package social はフォローグラフの照会・更新のドメインロジックを提供する。
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/guri/internal/model"
	"github.com/hitoshi/guri/internal/repository"
)

// MetricsRecorder はフォロー操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFollow()
	RecordUnfollow()
}

// Service はフォローグラフのサービス層。
// エッジの作成・削除と、閲覧者視点のフォロー状態の一括解決を提供する。
type Service struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	metrics    MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		followRepo: followRepo,
		userRepo:   userRepo,
		metrics:    metrics,
	}
}

// Follow はviewer → targetの有向フォローエッジを作成する。
// 自分自身へのフォローは拒否する。
// 既にフォロー済みの場合は成功として扱う（冪等）。
func (s *Service) Follow(ctx context.Context, viewerID, targetID string) error {
	if viewerID == targetID {
		return model.NewSelfFollowError()
	}

	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("フォロー対象の確認に失敗しました: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.followRepo.Create(ctx, viewerID, targetID); err != nil {
		// 一意制約違反は既にフォロー済みを意味する。
		// ストア側でエッジの重複が防がれるため、クライアントの
		// ローカル状態が古くてもエッジが二重化することはない。
		if errors.Is(err, repository.ErrDuplicate) {
			slog.Info("follow edge already exists",
				slog.String("follower_id", viewerID),
				slog.String("followee_id", targetID),
			)
			return nil
		}
		return fmt.Errorf("フォローに失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordFollow()
	}
	return nil
}

// Unfollow はviewer → targetのエッジを削除する。
// エッジが存在しない場合も成功として扱う。
func (s *Service) Unfollow(ctx context.Context, viewerID, targetID string) error {
	if err := s.followRepo.Delete(ctx, viewerID, targetID); err != nil {
		return fmt.Errorf("フォロー解除に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordUnfollow()
	}
	return nil
}

// FollowStates はviewerが各authorをフォローしているかを一括解決する。
// viewerIDが空（未ログイン）の場合は全員falseを返す。
// viewer自身はストアの内容にかかわらず常にfalse（自己フォロー抑止）。
// 照会は投稿者ごとの個別チェックではなく1クエリのバッチで行う。
func (s *Service) FollowStates(ctx context.Context, viewerID string, authorIDs []string) (map[string]bool, error) {
	states := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		states[id] = false
	}
	if viewerID == "" || len(authorIDs) == 0 {
		return states, nil
	}

	candidates := make([]string, 0, len(authorIDs))
	for _, id := range authorIDs {
		if id != viewerID {
			candidates = append(candidates, id)
		}
	}

	followed, err := s.followRepo.ListFollowedIn(ctx, viewerID, candidates)
	if err != nil {
		return nil, fmt.Errorf("フォロー状態の解決に失敗しました: %w", err)
	}

	for id := range followed {
		if id == viewerID {
			continue
		}
		states[id] = true
	}

	return states, nil
}
