package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/guri/internal/middleware"
	"github.com/hitoshi/guri/internal/model"
)

// SocialServiceInterface はフォローハンドラーが必要とするサービスインターフェース。
type SocialServiceInterface interface {
	// Follow はviewer → targetの有向フォローエッジを作成する（冪等）。
	Follow(ctx context.Context, viewerID, targetID string) error
	// Unfollow はviewer → targetのエッジを削除する（存在しなくても成功）。
	Unfollow(ctx context.Context, viewerID, targetID string) error
}

// SocialHandler はフォローグラフ更新のHTTPハンドラー。
type SocialHandler struct {
	service SocialServiceInterface
}

// NewSocialHandler はSocialHandlerを生成する。
func NewSocialHandler(service SocialServiceInterface) *SocialHandler {
	return &SocialHandler{service: service}
}

// Follow はフォローを処理する。
// PUT /api/follows/{userID}
func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	viewerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	targetID := chi.URLParam(r, "userID")
	if targetID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("対象ユーザーIDが空です"))
		return
	}

	if err := h.service.Follow(r.Context(), viewerID, targetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unfollow はフォロー解除を処理する。
// DELETE /api/follows/{userID}
func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	viewerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	targetID := chi.URLParam(r, "userID")
	if targetID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("対象ユーザーIDが空です"))
		return
	}

	if err := h.service.Unfollow(r.Context(), viewerID, targetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
