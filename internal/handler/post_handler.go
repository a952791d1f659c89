package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/guri/internal/middleware"
	"github.com/hitoshi/guri/internal/model"
)

// multipartOverhead はマルチパート境界やキャプション等、画像本体以外に許容するバイト数。
const multipartOverhead = 1 << 20

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	CreatePost(ctx context.Context, authorID string, image io.Reader, contentType, caption string) (*model.Post, error)
}

// PostHandlerConfig は投稿ハンドラーの設定。
type PostHandlerConfig struct {
	MaxImageSize int64 // 画像1枚あたりの上限バイト数
}

// PostHandler は投稿作成のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	config  PostHandlerConfig
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, config PostHandlerConfig) *PostHandler {
	return &PostHandler{
		service: service,
		config:  config,
	}
}

// postResponse は投稿作成のAPIレスポンス。
type postResponse struct {
	ID       string    `json:"id"`
	AuthorID string    `json:"author_id"`
	Images   []string  `json:"images"`
	Caption  string    `json:"caption"`
	PostedAt time.Time `json:"posted_at"`
	PostedOn string    `json:"posted_on"`
}

// CreatePost は画像付き投稿の作成を処理する。
// POST /api/posts （multipart/form-data: image, caption）
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	authorID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	// ボディ全体のサイズを制限する
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxImageSize+multipartOverhead)

	if err := r.ParseMultipartForm(h.config.MaxImageSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewImageTooLargeError(h.config.MaxImageSize))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("マルチパートフォームの解析に失敗しました"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewImageRequiredError())
		return
	}
	defer file.Close()

	caption := r.FormValue("caption")
	contentType := header.Header.Get("Content-Type")

	post, err := h.service.CreatePost(r.Context(), authorID, file, contentType, caption)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(postResponse{
		ID:       post.ID,
		AuthorID: post.AuthorID,
		Images:   post.Images,
		Caption:  post.Caption,
		PostedAt: post.PostedAt,
		PostedOn: post.PostedOn.Format("2006-01-02"),
	})
}
