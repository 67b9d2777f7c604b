package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/service"
)

// CatalogHandler serves authors, works and the browse/search pages.
// Reads are public; creating and editing require a signed-in user.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

type authorRequest struct {
	NameKannada string  `json:"nameKannada"`
	NameEnglish string  `json:"nameEnglish"`
	Biography   *string `json:"biography"`
	ImageURL    *string `json:"imageUrl"`
	Era         *string `json:"era"`
}

func (req authorRequest) input() service.AuthorInput {
	return service.AuthorInput{
		NameKannada: req.NameKannada,
		NameEnglish: req.NameEnglish,
		Biography:   req.Biography,
		ImageURL:    req.ImageURL,
		Era:         req.Era,
	}
}

type workRequest struct {
	AuthorID      int64    `json:"authorId"`
	TitleKannada  string   `json:"titleKannada"`
	TitleEnglish  string   `json:"titleEnglish"`
	Synopsis      *string  `json:"synopsis"`
	CoverImageURL *string  `json:"coverImageUrl"`
	Type          *string  `json:"type"`
	Genres        []string `json:"genres"`
}

func (req workRequest) input() service.WorkInput {
	return service.WorkInput{
		AuthorID:      req.AuthorID,
		TitleKannada:  req.TitleKannada,
		TitleEnglish:  req.TitleEnglish,
		Synopsis:      req.Synopsis,
		CoverImageURL: req.CoverImageURL,
		Type:          req.Type,
		Genres:        req.Genres,
	}
}

// =========================================================================
// BROWSE AND SEARCH
// =========================================================================

// HandlePopular lists the works reviewed most this week.
//
// HTTP: GET /api/popular
func (h *CatalogHandler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	works, err := h.catalog.PopularThisWeek(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, works)
}

// HandleSearch
//
// HTTP: GET /api/search?q=kuvempu
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAutocomplete answers the search box dropdown.
//
// HTTP: GET /api/search/autocomplete?q=ku
//
// RESPONSE FORMAT:
//
//	[{"label":"Author: Kuvempu (ಕುವೆಂಪು)","type":"author","id":1,"url":"/api/authors/1","priority":1}]
func (h *CatalogHandler) HandleAutocomplete(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.catalog.Autocomplete(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// HandleGenre
//
// HTTP: GET /api/genres/{genre}
func (h *CatalogHandler) HandleGenre(w http.ResponseWriter, r *http.Request) {
	// chi matches on the raw path when it has escapes, e.g. "Short%20Story".
	genre, err := url.PathUnescape(chi.URLParam(r, "genre"))
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("genre", "invalid genre"))
		return
	}
	res, err := h.catalog.GenreSearch(r.Context(), genre)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =========================================================================
// AUTHORS
// =========================================================================

// HTTP: GET /api/authors?limit=&offset=
func (h *CatalogHandler) HandleListAuthors(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	authors, err := h.catalog.ListAuthors(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

// HTTP: POST /api/authors (requires auth)
func (h *CatalogHandler) HandleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	author, err := h.catalog.CreateAuthor(r.Context(), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, author)
}

// HandleGetAuthor returns the author with their works.
//
// HTTP: GET /api/authors/{id}
func (h *CatalogHandler) HandleGetAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	detail, err := h.catalog.GetAuthor(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HTTP: PUT /api/authors/{id} (requires auth)
func (h *CatalogHandler) HandleUpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req authorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	author, err := h.catalog.UpdateAuthor(r.Context(), id, req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// =========================================================================
// WORKS
// =========================================================================

// HTTP: GET /api/works?limit=&offset=
func (h *CatalogHandler) HandleListWorks(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	works, err := h.catalog.ListWorks(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, works)
}

// HandleCreateWork adds a work. An unknown authorId answers 422.
//
// HTTP: POST /api/works (requires auth)
// REQUEST BODY: {"authorId": 1, "titleKannada": "...", "titleEnglish": "...", "genres": ["Novel"]}
func (h *CatalogHandler) HandleCreateWork(w http.ResponseWriter, r *http.Request) {
	var req workRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	work, err := h.catalog.CreateWork(r.Context(), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, work)
}

// HandleGetWork returns the work page: summary plus reviews, newest first.
//
// HTTP: GET /api/works/{id}
func (h *CatalogHandler) HandleGetWork(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	detail, err := h.catalog.GetWork(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HTTP: PUT /api/works/{id} (requires auth)
func (h *CatalogHandler) HandleUpdateWork(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req workRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	work, err := h.catalog.UpdateWork(r.Context(), id, req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, work)
}
