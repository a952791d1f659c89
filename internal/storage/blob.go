// Package storage は画像Blobの保存と公開URL解決を提供する。
//
// Blobは生成された一意な名前をキーとする不変オブジェクトで、
// リレーショナルストアとは分離して管理される。
// 投稿レコードが参照する前にBlobが存在している必要があるが、
// アップロード後の投稿保存失敗により参照されないBlobが残ることはある。
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore は画像Blobストアのインターフェース。
type BlobStore interface {
	// Upload はnameをキーとしてrの内容を保存する。
	// 同名Blobの上書きは想定しない（名前はUUIDで生成される前提）。
	Upload(ctx context.Context, name string, r io.Reader, contentType string) error

	// PublicURL はBlob名から公開URLを導出する。
	// 純粋関数であり、ネットワークアクセスもBlobの存在確認も行わない。
	PublicURL(name string) string
}

// DiskBlobStore はローカルディスクを使用したBlobStore実装。
// ファイルはdir直下にBlob名で保存され、/media/ 配下で配信される。
type DiskBlobStore struct {
	dir     string
	baseURL string
}

// NewDiskBlobStore はDiskBlobStoreを生成する。
// dirが存在しない場合は作成する。
func NewDiskBlobStore(dir, baseURL string) (*DiskBlobStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("media directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &DiskBlobStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload はBlobをディスクに保存する。
// 書き込み途中の読み取りを避けるため一時ファイルに書いてからrenameする。
func (s *DiskBlobStore) Upload(ctx context.Context, name string, r io.Reader, contentType string) error {
	if err := validateBlobName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close blob file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to finalize blob: %w", err)
	}
	return nil
}

// PublicURL はBlob名から公開URLを導出する。
func (s *DiskBlobStore) PublicURL(name string) string {
	return s.baseURL + "/" + name
}

// Dir はBlobの保存先ディレクトリを返す。配信用ファイルサーバーが使用する。
func (s *DiskBlobStore) Dir() string {
	return s.dir
}

// Remove は指定Blobを削除する。存在しない場合はエラーにしない。
// 孤児Blobの掃除に使用する。
func (s *DiskBlobStore) Remove(name string) error {
	if err := validateBlobName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// validateBlobName はBlob名がパス区切りを含まない単一要素であることを検証する。
func validateBlobName(name string) error {
	if name == "" {
		return fmt.Errorf("blob name is required")
	}
	if strings.ContainsAny(name, "/\\") || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid blob name: %s", name)
	}
	return nil
}

// compile-time interface check
var _ BlobStore = (*DiskBlobStore)(nil)
