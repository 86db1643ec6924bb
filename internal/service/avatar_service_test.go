package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/yawiki/internal/config"
	"github.com/xxxsen/yawiki/internal/filestore"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestAvatars(t *testing.T) (*AvatarService, *AuthService, *testRepos) {
	t.Helper()
	repos := newTestRepos(t)
	store, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	return NewAvatarService(store, repos.users), newTestAuth(t, repos, nil), repos
}

func TestAvatarUpload(t *testing.T) {
	avatars, auth, repos := newTestAvatars(t)
	ctx := context.Background()
	user := registerUser(t, auth, "ann@example.com")

	url, err := avatars.Upload(ctx, user.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, AvatarURLPrefix))
	require.True(t, strings.HasSuffix(url, "-cropped.png"))

	got, err := repos.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, url, got.Avatar)

	rc, err := avatars.Open(ctx, strings.TrimPrefix(url, AvatarURLPrefix))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, pngHeader, data)
}

func TestAvatarRejects(t *testing.T) {
	avatars, auth, _ := newTestAvatars(t)
	ctx := context.Background()
	user := registerUser(t, auth, "ann@example.com")

	_, err := avatars.Upload(ctx, user.ID, strings.NewReader("just text"))
	require.True(t, appErr.IsInvalid(err))
	_, err = avatars.Upload(ctx, user.ID, strings.NewReader(""))
	require.True(t, appErr.IsInvalid(err))

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxAvatarSize)...)
	_, err = avatars.Upload(ctx, user.ID, bytes.NewReader(big))
	require.True(t, appErr.IsInvalid(err))

	_, err = avatars.Open(ctx, "../etc/passwd")
	require.True(t, appErr.IsInvalid(err))
	_, err = avatars.Open(ctx, "missing.png")
	require.True(t, appErr.IsNotFound(err))
}

func TestAvatarReplaceRemovesPrevious(t *testing.T) {
	avatars, auth, _ := newTestAvatars(t)
	ctx := context.Background()
	user := registerUser(t, auth, "ann@example.com")

	first, err := avatars.Upload(ctx, user.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	second, err := avatars.Upload(ctx, user.ID, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = avatars.Open(ctx, strings.TrimPrefix(first, AvatarURLPrefix))
	require.True(t, appErr.IsNotFound(err))
	rc, err := avatars.Open(ctx, strings.TrimPrefix(second, AvatarURLPrefix))
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}
