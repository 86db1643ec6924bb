package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/filestore"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
	"github.com/xxxsen/yawiki/internal/pkg/idutil"
	"github.com/xxxsen/yawiki/internal/pkg/timeutil"
	"github.com/xxxsen/yawiki/internal/repo"
)

const (
	MaxAvatarSize   = 5 << 20
	AvatarURLPrefix = "/api/v1/users/avatar/"
)

var avatarExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type AvatarService struct {
	store filestore.Store
	users *repo.UserRepo
}

func NewAvatarService(store filestore.Store, users *repo.UserRepo) *AvatarService {
	return &AvatarService{store: store, users: users}
}

// Upload stores a new avatar for userID and returns its URL. The content type
// is sniffed from the data, the declared one is ignored.
func (s *AvatarService) Upload(ctx context.Context, userID string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", appErr.Invalid("avatar is required")
	}
	if len(data) > MaxAvatarSize {
		return "", appErr.Invalid("avatar must be at most 5MB")
	}
	contentType := http.DetectContentType(data)
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return "", appErr.Invalid("avatar must be an image")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	key := idutil.NewKey(8) + "-cropped." + ext
	if err := s.store.Save(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	url := AvatarURLPrefix + key
	if err := s.users.UpdateAvatar(ctx, userID, url, timeutil.NowUnix()); err != nil {
		return "", err
	}
	if old, ok := strings.CutPrefix(user.Avatar, AvatarURLPrefix); ok && old != key {
		if err := s.store.Delete(ctx, old); err != nil {
			logutil.GetLogger(ctx).Warn("remove previous avatar failed", zap.String("key", old), zap.Error(err))
		}
	}
	logutil.GetLogger(ctx).Info("avatar updated", zap.String("user_id", userID), zap.String("key", key), zap.String("store", s.store.Type()))
	return url, nil
}

func (s *AvatarService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !filestore.ValidKey(key) {
		return nil, appErr.Invalid("invalid avatar key")
	}
	return s.store.Open(ctx, key)
}
