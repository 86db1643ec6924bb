package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func uploadAvatar(t *testing.T, s *testServer, token string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/avatar", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func TestAvatarRoutes(t *testing.T) {
	s := setupRouter(t, "")
	token, _ := s.register("ann@example.com")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	resp := uploadAvatar(t, s, token, []byte("plain text"))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = uploadAvatar(t, s, token, png)
	require.Equal(t, http.StatusOK, resp.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	var data struct {
		AvatarURL string `json:"avatarUrl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.True(t, strings.HasPrefix(data.AvatarURL, "/api/v1/users/avatar/"))

	get, _ := s.do(http.MethodGet, data.AvatarURL, "", nil)
	require.Equal(t, http.StatusOK, get.Code)
	require.Equal(t, "image/png", get.Header().Get("Content-Type"))
	require.Equal(t, "no-cache, no-store, must-revalidate", get.Header().Get("Cache-Control"))
	require.Equal(t, png, get.Body.Bytes())

	get, _ = s.do(http.MethodGet, "/api/v1/users/avatar/missing.png", "", nil)
	require.Equal(t, http.StatusNotFound, get.Code)
}
