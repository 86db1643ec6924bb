package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/yawiki/internal/model"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
	"github.com/xxxsen/yawiki/internal/pkg/idutil"
	"github.com/xxxsen/yawiki/internal/pkg/timeutil"
	"github.com/xxxsen/yawiki/internal/repo"
)

const (
	reviewSampleSize = 5
	maxReviewLength  = 1000
)

type ReviewService struct {
	reviews *repo.ReviewRepo
}

func NewReviewService(reviews *repo.ReviewRepo) *ReviewService {
	return &ReviewService{reviews: reviews}
}

func validateReview(rating int, text string) (string, error) {
	if rating < 1 || rating > 5 {
		return "", appErr.Invalid("rating must be between 1 and 5")
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > maxReviewLength {
		return "", appErr.Invalid("review must be between 1 and %d characters", maxReviewLength)
	}
	return text, nil
}

// Summary returns a random sample of reviews with the overall rating.
func (s *ReviewService) Summary(ctx context.Context) (*model.ReviewSummary, error) {
	sample, err := s.reviews.Random(ctx, reviewSampleSize)
	if err != nil {
		return nil, err
	}
	avg, total, err := s.reviews.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &model.ReviewSummary{Reviews: sample, AverageRating: avg, TotalCount: total}, nil
}

func (s *ReviewService) Create(ctx context.Context, userID string, rating int, text string) (*model.UserReview, error) {
	text, err := validateReview(rating, text)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	review := &model.UserReview{
		ID:     idutil.NewID(),
		UserID: userID,
		Rating: rating,
		Review: text,
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if appErr.IsConflict(err) {
			return nil, appErr.Conflict("you have already submitted a review")
		}
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, userID, reviewID string, rating int, text string) (*model.UserReview, error) {
	if reviewID == "" {
		return nil, appErr.Invalid("id is required")
	}
	text, err := validateReview(rating, text)
	if err != nil {
		return nil, err
	}
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.NotFound("review not found")
		}
		return nil, err
	}
	if review.UserID != userID {
		return nil, appErr.Forbidden("only the author can edit this review")
	}
	now := timeutil.NowUnix()
	if err := s.reviews.Update(ctx, reviewID, rating, text, now); err != nil {
		return nil, err
	}
	review.Rating, review.Review, review.Mtime = rating, text, now
	return review, nil
}

// GetByUser returns nil without error when the user has not reviewed yet.
func (s *ReviewService) GetByUser(ctx context.Context, userID string) (*model.ReviewView, error) {
	view, err := s.reviews.GetByUserID(ctx, userID)
	if appErr.IsNotFound(err) {
		return nil, nil
	}
	return view, err
}
