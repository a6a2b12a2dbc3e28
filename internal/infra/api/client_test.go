package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatapp "recyclemart/internal/app/chat"
	"recyclemart/internal/domain/marketplace"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/api/v1/", Timeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "  "}, nil)
	require.ErrorIs(t, err, ErrBaseURLRequired)
}

func TestListAdsSendsFiltersAndReadsMeta(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/ad", r.URL.Path)
		assert.Equal(t, "bike", r.URL.Query().Get("searchTerm"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "ad1", "title": "Bike", "price": 120}},
			"meta":    map[string]any{"page": 2, "limit": 10, "total": 25, "totalPage": 3},
		})
	})

	page, err := c.ListAds(context.Background(), marketplace.AdQuery{Search: "bike", Page: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Bike", page.Items[0].Title)
	assert.Equal(t, 3, page.Meta.TotalPage)
	assert.True(t, page.Meta.HasNext())
}

func TestErrorResponseCarriesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success":      false,
			"message":      "You are not authorized",
			"errorSources": []map[string]string{{"path": "", "message": "You are not authorized"}},
		})
	})

	_, err := c.Profile(context.Background(), "tok")
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "You are not authorized", apiErr.ServerMessage())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUnsuccessfulEnvelopeIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Plan not found"})
	})

	err := c.ChangePlan(context.Background(), "tok", "p1")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Plan not found", apiErr.Message)
}

func TestNonJSONResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := c.Categories(context.Background())
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestAuthenticatedCallsRequireToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	_, err := c.MyAds(context.Background(), "", 1, 10)
	assert.ErrorIs(t, err, ErrTokenRequired)
	assert.ErrorIs(t, c.AddFavorite(context.Background(), "", "ad1"), ErrTokenRequired)
	_, err = c.UploadImage(context.Background(), " ", chatapp.LocalFile{Path: "x"})
	assert.ErrorIs(t, err, ErrTokenRequired)
}

func TestSignInPostsCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/user/signin", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var creds marketplace.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "a@b.c", creds.Email)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]string{"accessToken": "acc", "refreshToken": "ref"},
		})
	})

	tokens, err := c.SignIn(context.Background(), marketplace.Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "acc", tokens.AccessToken)
	assert.Equal(t, "ref", tokens.RefreshToken)
}

func TestRefreshAccessTokenUsesRefreshBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/user/access-token", r.URL.Path)
		assert.Equal(t, "Bearer ref", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"accessToken": "fresh"}})
	})

	token, err := c.RefreshAccessToken(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestFavoritesRoundTrip(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    []map[string]any{{"_id": "f1", "adId": "ad1", "title": "Sofa"}},
				"meta":    map[string]any{"page": 1, "limit": 10, "total": 1, "totalPage": 1},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok"})
	})

	ctx := context.Background()
	require.NoError(t, c.AddFavorite(ctx, "tok", "ad1"))
	page, err := c.Favorites(ctx, "tok", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ad1", page.Items[0].AdID)
	assert.False(t, page.Meta.HasNext())
	require.NoError(t, c.RemoveFavorite(ctx, "tok", "ad1"))

	assert.Equal(t, []string{
		"POST /api/v1/favourite/ad1",
		"GET /api/v1/favourite/my",
		"DELETE /api/v1/favourite/ad1",
	}, calls)
}

func TestUploadImageSendsMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nrest"), 0o600))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/upload-image", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "photo.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "\x89PNG\r\n\x1a\nrest", string(body))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"url": "https://cdn/x.png"}})
	})

	url, err := c.UploadImage(context.Background(), "tok", chatapp.LocalFile{Path: path, Name: "photo.png", MIME: "image/png", Size: 12})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.png", url)
}

func TestUploadImageWithoutURLFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{}})
	})

	_, err := c.UploadImage(context.Background(), "tok", chatapp.LocalFile{Path: path, Name: "photo.png", MIME: "image/png"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
}

func TestUploadImageMissingFile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request")
	})

	_, err := c.UploadImage(context.Background(), "tok", chatapp.LocalFile{Path: "/nope/missing.png", Name: "missing.png"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
