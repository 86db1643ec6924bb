package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/license"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
	"github.com/xxxsen/yawiki/internal/pkg/timeutil"
	"github.com/xxxsen/yawiki/internal/repo"
	"github.com/xxxsen/yawiki/internal/settings"
)

type LicenseResult struct {
	LicenseKey  string `json:"licenseKey"`
	LicenseType string `json:"licenseType"`
}

type LicenseService struct {
	client     *license.Client
	promotions *settings.PromotionStore
	users      *repo.UserRepo
	now        func() time.Time
}

func NewLicenseService(client *license.Client, promotions *settings.PromotionStore, users *repo.UserRepo) *LicenseService {
	return &LicenseService{client: client, promotions: promotions, users: users, now: time.Now}
}

// Generate issues a license for email. While a giveaway runs the license is
// pro, the matching account is upgraded and one giveaway slot is used up.
func (s *LicenseService) Generate(ctx context.Context, email string) (*LicenseResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	active, err := s.promotions.Active(ctx, s.now())
	if err != nil {
		return nil, err
	}
	licenseType := license.TypePersonal
	if active != nil {
		licenseType = license.TypePro
	}
	key, err := s.client.Generate(ctx, email, licenseType)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("email", email), zap.String("license_type", licenseType))
	if licenseType == license.TypePro {
		if err := s.users.SetProByEmail(ctx, email, timeutil.NowUnix()); err != nil {
			if !appErr.IsNotFound(err) {
				return nil, err
			}
			logger.Warn("no account for pro license email")
		}
		granted, err := s.promotions.ConsumeGiveaway(ctx, active.ID)
		if err != nil {
			return nil, err
		}
		if !granted {
			logger.Warn("giveaway ran out while generating license", zap.String("promotion", active.ID))
		}
	}
	logger.Info("license generated")
	return &LicenseResult{LicenseKey: key, LicenseType: licenseType}, nil
}

func (s *LicenseService) Lookup(ctx context.Context, email string) (json.RawMessage, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return s.client.Lookup(ctx, email)
}
