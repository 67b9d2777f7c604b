package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/literary-diary/internal/service"
)

// ReviewHandler logs, edits and deletes diary entries. Every route requires
// a signed-in user; editing someone else's review answers 403.
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

// reviewRequest carries dateRead as YYYY-MM-DD.
type reviewRequest struct {
	Rating     int     `json:"rating"`
	ReviewText *string `json:"reviewText"`
	DateRead   string  `json:"dateRead"`
}

func (req reviewRequest) input() (service.ReviewInput, error) {
	date, err := service.ParseDateRead(req.DateRead)
	if err != nil {
		return service.ReviewInput{}, err
	}
	return service.ReviewInput{Rating: req.Rating, ReviewText: req.ReviewText, DateRead: date}, nil
}

// decodeReview reads the signed-in user and the review body.
func decodeReview(w http.ResponseWriter, r *http.Request) (int64, service.ReviewInput, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return 0, service.ReviewInput{}, err
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return 0, service.ReviewInput{}, err
	}
	in, err := req.input()
	return userID, in, err
}

// HandleCreate logs a review of a work.
//
// HTTP: POST /api/works/{id}/reviews
// REQUEST BODY: {"rating": 5, "reviewText": "Loved it", "dateRead": "2024-03-01"}
//
// A rating outside 1..5 answers 422; an unknown work also answers 422.
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	workID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID, in, err := decodeReview(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	review, err := h.reviews.LogReview(r.Context(), userID, workID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// HTTP: PUT /api/reviews/{id}
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	reviewID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID, in, err := decodeReview(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	review, err := h.reviews.UpdateReview(r.Context(), userID, reviewID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HTTP: DELETE /api/reviews/{id}
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	reviewID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), userID, reviewID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListForWork lists a work's reviews, newest first.
//
// HTTP: GET /api/works/{id}/reviews
func (h *ReviewHandler) HandleListForWork(w http.ResponseWriter, r *http.Request) {
	workID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	reviews, err := h.reviews.ListForWork(r.Context(), workID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleListMine lists the signed-in user's diary, most recently read first.
//
// HTTP: GET /api/me/reviews
func (h *ReviewHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	reviews, err := h.reviews.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
