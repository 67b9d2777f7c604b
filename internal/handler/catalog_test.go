package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/literary-diary/internal/model"
)

func TestCatalogWrites_RequireAuth(t *testing.T) {
	api := newTestAPI(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/authors"},
		{http.MethodPut, "/api/authors/1"},
		{http.MethodPost, "/api/works"},
		{http.MethodPut, "/api/works/1"},
	} {
		rr := api.do(tc.method, tc.path, `{}`, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCreateWork_UnknownAuthor(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp("editor")

	rr := api.do(http.MethodPost, "/api/works", map[string]any{
		"authorId": 999, "titleKannada": "ಸಂಸ್ಕಾರ", "titleEnglish": "Samskara",
	}, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	body := decode[errorBody](t, rr)
	assert.Equal(t, "referential_integrity", body.Error)
	assert.Equal(t, "author_id", body.Field)
}

func TestGetWork(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp("editor")
	_, workID := api.seedWork(token, "Kuvempu", "Kanooru Heggadithi", "Novel", "Social")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"found", "/api/works/" + itoa(workID), http.StatusOK, ""},
		{"missing", "/api/works/999", http.StatusNotFound, "not_found"},
		{"not a number", "/api/works/abc", http.StatusBadRequest, "validation_error"},
		{"zero", "/api/works/0", http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(http.MethodGet, tt.path, nil, "")
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decode[errorBody](t, rr).Error)
				return
			}
			detail := decode[model.WorkDetail](t, rr)
			assert.Equal(t, "Kanooru Heggadithi", detail.Summary.TitleEnglish)
			assert.Equal(t, "Kuvempu", detail.Summary.AuthorNameEnglish)
			assert.Equal(t, []string{"Novel", "Social"}, detail.Summary.GenreList())
		})
	}
}

func TestAuthorDetailAndUpdate(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp("editor")
	authorID, _ := api.seedWork(token, "Kuvempu", "Kanooru Heggadithi")

	rr := api.do(http.MethodPut, "/api/authors/"+itoa(authorID), map[string]any{
		"nameKannada": "ಕುವೆಂಪು",
		"nameEnglish": "Kuvempu",
		"era":         "Navodaya",
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = api.do(http.MethodGet, "/api/authors/"+itoa(authorID), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	detail := decode[model.AuthorDetail](t, rr)
	assert.Equal(t, "ಕುವೆಂಪು", detail.Author.NameKannada)
	require.NotNil(t, detail.Author.Era)
	assert.Equal(t, "Navodaya", *detail.Author.Era)
	require.Len(t, detail.Works, 1)
	assert.Equal(t, "Kanooru Heggadithi", detail.Works[0].TitleEnglish)
}

func TestUpdateWork(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp("editor")
	authorID, workID := api.seedWork(token, "Kuvempu", "Kanooru")

	rr := api.do(http.MethodPut, "/api/works/"+itoa(workID), map[string]any{
		"authorId":     authorID,
		"titleKannada": "ಕಾನೂರು ಹೆಗ್ಗಡಿತಿ",
		"titleEnglish": "Kanooru Heggadithi",
		"type":         "Novel",
	}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	work := decode[model.Work](t, rr)
	assert.Equal(t, "Kanooru Heggadithi", work.TitleEnglish)
	require.NotNil(t, work.Type)
	assert.Equal(t, "Novel", *work.Type)
}

func TestListing(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp("editor")
	api.seedWork(token, "Kuvempu", "Kanooru Heggadithi")
	api.seedWork(token, "U. R. Ananthamurthy", "Samskara")

	rr := api.do(http.MethodGet, "/api/works?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.WorkSummary](t, rr), 1)

	rr = api.do(http.MethodGet, "/api/authors", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Author](t, rr), 2)

	rr = api.do(http.MethodGet, "/api/authors?offset=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "offset", decode[errorBody](t, rr).Field)
}

func TestSearchAndAutocomplete(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp("editor")
	kuvempuID, _ := api.seedWork(token, "Kuvempu", "Kanooru Heggadithi")
	api.seedWork(token, "U. R. Ananthamurthy", "Samskara")

	rr := api.do(http.MethodGet, "/api/search/autocomplete?q=kuvempu", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	suggestions := decode[[]model.Suggestion](t, rr)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, model.SuggestionAuthor, suggestions[0].Type)
	assert.Equal(t, "/api/authors/"+itoa(kuvempuID), suggestions[0].URL)
	assert.Equal(t, 1, suggestions[0].Priority)

	rr = api.do(http.MethodGet, "/api/search/autocomplete", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = api.do(http.MethodGet, "/api/search?q=samsk", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[model.SearchResults](t, rr)
	assert.Empty(t, res.Authors)
	require.Len(t, res.Works, 1)
	assert.Equal(t, "Samskara", res.Works[0].TitleEnglish)
}

func TestGenreSearch(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp("editor")
	api.seedWork(token, "Kuvempu", "Kanooru Heggadithi", "Novel")
	api.seedWork(token, "Masti", "Chikkavira Rajendra", "Short Story")

	rr := api.do(http.MethodGet, "/api/genres/Short%20Story", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[model.GenreResults](t, rr)
	assert.Equal(t, "Short Story", res.Genre)
	assert.False(t, res.Fallback)
	require.Len(t, res.Works, 1)
	assert.Equal(t, "Chikkavira Rajendra", res.Works[0].TitleEnglish)

	rr = api.do(http.MethodGet, "/api/genres/heggadithi", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	res = decode[model.GenreResults](t, rr)
	assert.True(t, res.Fallback, "no genre matched, title did")
	require.Len(t, res.Works, 1)
}

func TestPopular(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.signUp("reader")
	_, reviewed := api.seedWork(token, "Kuvempu", "Kanooru Heggadithi")
	api.seedWork(token, "Masti", "Chikkavira Rajendra")

	rr := api.do(http.MethodPost, "/api/works/"+itoa(reviewed)+"/reviews", map[string]any{
		"rating": 5, "dateRead": "2024-03-01",
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = api.do(http.MethodGet, "/api/popular", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	works := decode[[]model.WorkSummary](t, rr)
	require.Len(t, works, 1, "works without reviews are not popular")
	assert.Equal(t, reviewed, works[0].ID)
	assert.Equal(t, 1, works[0].ReviewCount)
	assert.InDelta(t, 5.0, works[0].AvgRating, 0.001)
}
