package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/guri/internal/middleware"
	"github.com/hitoshi/guri/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

// ProfileHandler はプロフィール照会のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// profileResponse はプロフィール照会のAPIレスポンス。
type profileResponse struct {
	UserID         string   `json:"user_id"`
	Name           string   `json:"name"`
	PostImageURLs  []string `json:"post_image_urls"`
	FollowingNames []string `json:"following_names"`
}

// GetProfile はログインユーザー自身のプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profileResponse{
		UserID:         profile.UserID,
		Name:           profile.Name,
		PostImageURLs:  profile.PostImageURLs,
		FollowingNames: profile.FollowingNames,
	})
}
