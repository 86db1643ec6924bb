package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/model"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
	"github.com/xxxsen/yawiki/internal/pkg/idutil"
	"github.com/xxxsen/yawiki/internal/pkg/jwt"
	"github.com/xxxsen/yawiki/internal/pkg/password"
	"github.com/xxxsen/yawiki/internal/pkg/timeutil"
	"github.com/xxxsen/yawiki/internal/repo"
	"github.com/xxxsen/yawiki/internal/session"
)

type AuthService struct {
	users     *repo.UserRepo
	revoker   session.Revoker
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users *repo.UserRepo, revoker session.Revoker, secret []byte, ttl time.Duration) *AuthService {
	if revoker == nil {
		revoker = session.Nop{}
	}
	return &AuthService{users: users, revoker: revoker, jwtSecret: secret, jwtTTL: ttl}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", appErr.Invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", appErr.Invalid("invalid email")
	}
	return email, nil
}

// Register creates an account. The very first account becomes an admin.
func (s *AuthService) Register(ctx context.Context, email, name, plainPassword string) (*model.User, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if err := password.Validate(plainPassword); err != nil {
		return nil, "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, "", err
	}
	role := model.RoleUser
	if total == 0 {
		role = model.RoleAdmin
	}
	now := timeutil.NowUnix()
	user := &model.User{
		ID:           idutil.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		LastLogin:    now,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if appErr.IsConflict(err) {
			return nil, "", appErr.Conflict("email already registered")
		}
		return nil, "", err
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	logutil.GetLogger(ctx).Info("user registered", zap.String("user_id", user.ID), zap.String("role", role))
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, "", appErr.Unauthorized("invalid email or password")
		}
		return nil, "", err
	}
	if !password.Match(user.PasswordHash, plainPassword) {
		return nil, "", appErr.Unauthorized("invalid email or password")
	}
	if password.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, plainPassword)
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, timeutil.NowUnix()); err != nil {
		logutil.GetLogger(ctx).Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) rehash(ctx context.Context, userID, plain string) {
	hash, err := password.Hash(plain)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash, timeutil.NowUnix())
	}
	if err != nil {
		logutil.GetLogger(ctx).Warn("rehash password failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AuthService) issue(user *model.User) (string, error) {
	return jwt.GenerateToken(user.ID, user.Email, user.Role, s.jwtSecret, s.jwtTTL)
}

// Authenticate validates a bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, appErr.Unauthorized("invalid token")
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, appErr.Unauthorized("token revoked")
	}
	return claims, nil
}

func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	return s.revoker.Revoke(ctx, claims.ID, claims.TTL())
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if appErr.IsNotFound(err) {
		return nil, appErr.NotFound("user not found")
	}
	return user, err
}

// EmailAvailable reports whether email can still be registered.
func (s *AuthService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	_, err = s.users.GetByEmail(ctx, email)
	if appErr.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.Invalid("name is required")
	}
	if err := s.users.UpdateName(ctx, userID, name, timeutil.NowUnix()); err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := password.Validate(newPassword); err != nil {
		return err
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Match(user.PasswordHash, oldPassword) {
		return appErr.Invalid("current password is incorrect")
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash, timeutil.NowUnix())
}

func (s *AuthService) UpdateLastLogin(ctx context.Context, userID string) error {
	return s.users.UpdateLastLogin(ctx, userID, timeutil.NowUnix())
}
