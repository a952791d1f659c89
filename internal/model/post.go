// Package model はドメインモデルを定義する。
package model

import "time"

// Post はユーザーが投稿した写真付き投稿を表す。
// 作成後は不変で、編集・削除のAPIは存在しない。
type Post struct {
	ID       string
	AuthorID string
	// Images は画像Blob名の順序付きリスト。実運用上はほぼ常に1件。
	Images   []string
	Caption  string
	PostedAt time.Time
	// PostedOn はPostedAtの日付部分のみを切り出した冗長な派生フィールド。
	PostedOn  time.Time
	CreatedAt time.Time
}

// FeedEntry はフィード1件分の表示用データ。
// 投稿と投稿者表示名のJOIN結果に、先頭画像の公開URLと
// 閲覧者のフォロー状態を付加したもの。
type FeedEntry struct {
	PostID     string
	AuthorID   string
	AuthorName string
	ImageURL   string
	Caption    string
	PostedAt   time.Time
	Following  bool
}

// Follow はフォロワーからフォロイーへの有向フォローエッジを表す。
// 同一の順序対につき高々1本（ストアの一意制約で保証される）。
type Follow struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}

// Profile はログインユーザー自身のプロフィール表示用データ。
type Profile struct {
	UserID         string
	Name           string
	PostImageURLs  []string
	FollowingNames []string
}
