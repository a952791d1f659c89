// Package profile はログインユーザー自身のプロフィール集約を提供する。
package profile

import (
	"context"
	"log/slog"

	"github.com/hitoshi/guri/internal/model"
	"github.com/hitoshi/guri/internal/repository"
)

// unknownUserName は表示名が取得できない場合のセンチネル。
const unknownUserName = "Unknown"

// URLResolver はBlob名から公開URLを導出するインターフェース。
type URLResolver interface {
	PublicURL(name string) string
}

// Service はプロフィール集約のサービス層。
// 表示名・自分の投稿画像URL・フォロー中ユーザー名の3つの独立した読み取りを行う。
type Service struct {
	userRepo   repository.UserRepository
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	urls       URLResolver
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	urls URLResolver,
) *Service {
	return &Service{
		userRepo:   userRepo,
		postRepo:   postRepo,
		followRepo: followRepo,
		urls:       urls,
	}
}

// GetProfile はユーザー自身のプロフィール表示用データを集約する。
//
// 3つの読み取りは互いに独立しており、一部の失敗が他をブロックしない。
// 表示名の取得失敗はセンチネル、投稿・フォロー一覧の取得失敗は
// 空リストにフォールバックし、それぞれ警告ログを残す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	p := &model.Profile{
		UserID:         userID,
		Name:           unknownUserName,
		PostImageURLs:  []string{},
		FollowingNames: []string{},
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		slog.Warn("failed to load profile name",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	} else {
		p.Name = user.Name
	}

	images, err := s.postRepo.ListImagesByAuthor(ctx, userID)
	if err != nil {
		slog.Warn("failed to load profile posts",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		urls := make([]string, 0, len(images))
		for _, name := range images {
			urls = append(urls, s.urls.PublicURL(name))
		}
		p.PostImageURLs = urls
	}

	names, err := s.loadFollowingNames(ctx, userID)
	if err != nil {
		slog.Warn("failed to load following list",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		p.FollowingNames = names
	}

	return p, nil
}

// loadFollowingNames はフォロー中ユーザーの表示名一覧を取得する。
// エッジの取得と表示名の解決の2クエリで構成される。
func (s *Service) loadFollowingNames(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.followRepo.ListFolloweeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}
	return s.userRepo.ListNamesByIDs(ctx, ids)
}
