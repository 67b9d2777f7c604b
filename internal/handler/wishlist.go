package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/literary-diary/internal/service"
)

// WishlistHandler manages the signed-in user's want-to-read list.
type WishlistHandler struct {
	wishlist *service.WishlistService
	logger   *slog.Logger
}

func NewWishlistHandler(wishlist *service.WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist, logger: logger}
}

type wishlistRequest struct {
	WorkID int64 `json:"workId"`
}

// HTTP: GET /api/me/wishlist
func (h *WishlistHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items, err := h.wishlist.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleAdd puts a work on the list. Adding it twice answers 409.
//
// HTTP: POST /api/me/wishlist
// REQUEST BODY: {"workId": 7}
func (h *WishlistHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req wishlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	entry, err := h.wishlist.Add(r.Context(), userID, req.WorkID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HTTP: DELETE /api/me/wishlist/{workID}
func (h *WishlistHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	workID, err := pathID(r, "workID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.wishlist.Remove(r.Context(), userID, workID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wishlistStatus struct {
	WorkID     int64 `json:"workId"`
	OnWishlist bool  `json:"onWishlist"`
}

// HandleContains tells the work page whether to show "add" or "remove".
//
// HTTP: GET /api/me/wishlist/{workID}
func (h *WishlistHandler) HandleContains(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	workID, err := pathID(r, "workID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ok, err := h.wishlist.Contains(r.Context(), userID, workID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, wishlistStatus{WorkID: workID, OnWishlist: ok})
}
