package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/yawiki/internal/config"
	"github.com/xxxsen/yawiki/internal/db/dbtest"
	"github.com/xxxsen/yawiki/internal/doctree"
	"github.com/xxxsen/yawiki/internal/filestore"
	"github.com/xxxsen/yawiki/internal/handler"
	"github.com/xxxsen/yawiki/internal/license"
	"github.com/xxxsen/yawiki/internal/middleware"
	"github.com/xxxsen/yawiki/internal/render"
	"github.com/xxxsen/yawiki/internal/repo"
	"github.com/xxxsen/yawiki/internal/search"
	"github.com/xxxsen/yawiki/internal/service"
	"github.com/xxxsen/yawiki/internal/settings"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	docsRoot string
}

func setupRouter(t *testing.T, licenseURL string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := dbtest.Open(t)
	users := repo.NewUserRepo(conn)
	auth := service.NewAuthService(users, nil, []byte("test-secret"), time.Hour)

	docsRoot := t.TempDir()
	tree, err := doctree.NewManager(context.Background(), doctree.NewStore(docsRoot, "meta.json"))
	require.NoError(t, err)
	pages := service.NewPageService(tree, render.New(16, time.Minute), search.NewService(nil, search.NewLocal(tree)))

	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)

	settingsDir := t.TempDir()
	promotions := settings.NewPromotionStore(settingsDir)
	if licenseURL == "" {
		licenseURL = "http://127.0.0.1:1"
	}

	deps := handler.RouterDeps{
		Auth:     handler.NewAuthHandler(auth),
		Pages:    handler.NewPageHandler(pages),
		Avatars:  handler.NewAvatarHandler(service.NewAvatarService(store, users)),
		DevBoard: handler.NewDevBoardHandler(service.NewDevBoardService(repo.NewDevItemRepo(conn), repo.NewVoteRepo(conn), repo.NewCommentRepo(conn))),
		Reviews:  handler.NewReviewHandler(service.NewReviewService(repo.NewReviewRepo(conn))),
		Settings: handler.NewSettingsHandler(promotions, settings.NewTermsStore(settingsDir)),
		License:  handler.NewLicenseHandler(service.NewLicenseService(license.NewClient(licenseURL, time.Second), promotions, users)),

		Authenticator: auth,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return &testServer{t: t, handler: engine, docsRoot: docsRoot}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)

	var env envelope
	_ = json.Unmarshal(resp.Body.Bytes(), &env)
	return resp, env
}

// register creates an account and returns its token and user id.
func (s *testServer) register(email string) (string, string) {
	s.t.Helper()
	resp, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": email, "password": "password1"})
	require.Equal(s.t, http.StatusOK, resp.Code, resp.Body.String())
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Token, data.User.ID
}
