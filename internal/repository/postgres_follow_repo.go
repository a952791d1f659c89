package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローエッジリポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Create はフォローエッジ(follower → followee)を作成する。
// 同一ペアのエッジが既に存在する場合はErrDuplicateを返す。
// 一意性はfollowsテーブルの複合主キーで保証される。
func (r *PostgresFollowRepo) Create(ctx context.Context, followerID, followeeID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followee_id, created_at) VALUES ($1, $2, $3)`,
		followerID, followeeID, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("フォローエッジの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定ペアに完全一致するエッジを削除する。
// エッジが存在しない場合もエラーにしない。
func (r *PostgresFollowRepo) Delete(ctx context.Context, followerID, followeeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID,
	)
	if err != nil {
		return fmt.Errorf("フォローエッジの削除に失敗しました: %w", err)
	}
	return nil
}

// ListFollowedIn はfollowerIDがフォローしているユーザーのうち、
// candidateIDsに含まれるものの集合を1クエリで返す。
// 投稿者ごとの個別存在チェックを避けるためのバッチ照会。
func (r *PostgresFollowRepo) ListFollowedIn(ctx context.Context, followerID string, candidateIDs []string) (map[string]bool, error) {
	followed := map[string]bool{}
	if len(candidateIDs) == 0 {
		return followed, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1 AND followee_id = ANY($2)`,
		followerID, pq.Array(candidateIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("フォロー状態の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("フォロー状態の読み取りに失敗しました: %w", err)
		}
		followed[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォロー状態の走査に失敗しました: %w", err)
	}

	return followed, nil
}

// ListFolloweeIDs はfollowerIDがフォローしている全ユーザーIDを返す。
func (r *PostgresFollowRepo) ListFolloweeIDs(ctx context.Context, followerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1`,
		followerID,
	)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("フォロー先IDの読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フォロー一覧の走査に失敗しました: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
