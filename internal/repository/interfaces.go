// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/guri/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に登録されている場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// SearchByName は表示名に対する大文字小文字を区別しない部分一致検索を行い、
	// 一致したユーザーIDの集合を返す。一致なしの場合は空スライスを返す。
	SearchByName(ctx context.Context, term string) ([]string, error)

	// ListNamesByIDs は指定ID集合のユーザー表示名を返す。順序は不定。
	ListNamesByIDs(ctx context.Context, ids []string) ([]string, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// ListFeed は全投稿を投稿者表示名とJOINし、posted_at降順で返す。
	// authorIDsが空でない場合は投稿者をその集合に限定する。
	// 投稿者の表示名が解決できない投稿はAuthorNameValid=falseで返す。
	ListFeed(ctx context.Context, authorIDs []string) ([]FeedRow, error)

	// ListImagesByAuthor は指定ユーザーの全投稿の画像Blob名を
	// posted_at降順・投稿内の画像順で平坦化して返す。
	ListImagesByAuthor(ctx context.Context, authorID string) ([]string, error)

	// ListReferencedImages は全投稿が参照している画像Blob名の集合を返す。
	ListReferencedImages(ctx context.Context) (map[string]struct{}, error)
}

// FollowRepository はフォローエッジの永続化インターフェース。
type FollowRepository interface {
	// Create はフォローエッジ(follower → followee)を作成する。
	// 同一ペアのエッジが既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, followerID, followeeID string) error

	// Delete は指定ペアに完全一致するエッジを削除する。
	// エッジが存在しない場合もエラーにしない。
	Delete(ctx context.Context, followerID, followeeID string) error

	// ListFollowedIn はfollowerIDがフォローしているユーザーのうち、
	// candidateIDsに含まれるものの集合を1クエリで返す。
	ListFollowedIn(ctx context.Context, followerID string, candidateIDs []string) (map[string]bool, error)

	// ListFolloweeIDs はfollowerIDがフォローしている全ユーザーIDを返す。
	ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error)
}

// FeedRow は投稿と投稿者表示名のJOIN結果1行分。
type FeedRow struct {
	PostID          string
	AuthorID        string
	AuthorName      string
	AuthorNameValid bool
	Images          []string
	Caption         string
	PostedAt        time.Time
}
