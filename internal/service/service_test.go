package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/yawiki/internal/db/dbtest"
	"github.com/xxxsen/yawiki/internal/model"
	"github.com/xxxsen/yawiki/internal/repo"
	"github.com/xxxsen/yawiki/internal/session"
)

type testRepos struct {
	users    *repo.UserRepo
	items    *repo.DevItemRepo
	votes    *repo.VoteRepo
	comments *repo.CommentRepo
	reviews  *repo.ReviewRepo
}

func newTestRepos(t *testing.T) *testRepos {
	t.Helper()
	conn := dbtest.Open(t)
	return &testRepos{
		users:    repo.NewUserRepo(conn),
		items:    repo.NewDevItemRepo(conn),
		votes:    repo.NewVoteRepo(conn),
		comments: repo.NewCommentRepo(conn),
		reviews:  repo.NewReviewRepo(conn),
	}
}

func newTestAuth(t *testing.T, repos *testRepos, revoker session.Revoker) *AuthService {
	t.Helper()
	return NewAuthService(repos.users, revoker, []byte("test-secret"), time.Hour)
}

func registerUser(t *testing.T, auth *AuthService, email string) *model.User {
	t.Helper()
	user, _, err := auth.Register(context.Background(), email, "", "password1")
	require.NoError(t, err)
	return user
}
