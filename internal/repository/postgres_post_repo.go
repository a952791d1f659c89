package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/guri/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, images, caption, posted_at, posted_on, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID, post.AuthorID, pq.Array(post.Images), post.Caption,
		post.PostedAt, post.PostedOn, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}
	return nil
}

// ListFeed は全投稿を投稿者表示名とJOINし、posted_at降順で返す。
// authorIDsが空でない場合は投稿者をその集合に限定する。
// JOINで表示名が解決できない行はAuthorNameValid=falseで返す。
func (r *PostgresPostRepo) ListFeed(ctx context.Context, authorIDs []string) ([]FeedRow, error) {
	query := `SELECT p.id, p.author_id, u.name, p.images, p.caption, p.posted_at
	          FROM posts p
	          LEFT JOIN users u ON u.id = p.author_id`
	args := []any{}
	if len(authorIDs) > 0 {
		query += ` WHERE p.author_id = ANY($1)`
		args = append(args, pq.Array(authorIDs))
	}
	query += ` ORDER BY p.posted_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	result := []FeedRow{}
	for rows.Next() {
		var row FeedRow
		var name sql.NullString
		var images pq.StringArray
		if err := rows.Scan(&row.PostID, &row.AuthorID, &name, &images, &row.Caption, &row.PostedAt); err != nil {
			return nil, fmt.Errorf("投稿行の読み取りに失敗しました: %w", err)
		}
		row.AuthorName = name.String
		row.AuthorNameValid = name.Valid
		row.Images = []string(images)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の走査に失敗しました: %w", err)
	}

	return result, nil
}

// ListImagesByAuthor は指定ユーザーの全投稿の画像Blob名を
// posted_at降順・投稿内の画像順で平坦化して返す。
func (r *PostgresPostRepo) ListImagesByAuthor(ctx context.Context, authorID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.images FROM posts p WHERE p.author_id = $1 ORDER BY p.posted_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿画像一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var images pq.StringArray
		if err := rows.Scan(&images); err != nil {
			return nil, fmt.Errorf("投稿画像の読み取りに失敗しました: %w", err)
		}
		names = append(names, images...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿画像一覧の走査に失敗しました: %w", err)
	}

	return names, nil
}

// ListReferencedImages は全投稿が参照している画像Blob名の集合を返す。
// 孤児Blobの掃除に使用する。
func (r *PostgresPostRepo) ListReferencedImages(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT unnest(images) FROM posts`,
	)
	if err != nil {
		return nil, fmt.Errorf("参照画像一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	referenced := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("参照画像名の読み取りに失敗しました: %w", err)
		}
		referenced[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("参照画像一覧の走査に失敗しました: %w", err)
	}

	return referenced, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
