// Package settings keeps admin managed settings as JSON files.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
)

const (
	PromotionTypeGiveaway = "giveaway"

	ActionOpen     = "open"
	ActionClose    = "close"
	ActionRegister = "register"
)

var promotionFields = map[string]struct{}{
	"id": {}, "type": {}, "startDate": {}, "endDate": {}, "description": {}, "details": {},
	"maxGiveaways": {}, "remainingGiveaways": {}, "usedGiveaways": {},
	"clicksOpened": {}, "clicksClosed": {}, "registrations": {},
}

// Promotion is one promotion file. Fields the admin UI sends beyond the
// known ones are kept in Extra and written back unchanged.
type Promotion struct {
	ID                 string
	Type               string
	StartDate          string
	EndDate            string
	Description        string
	Details            string
	MaxGiveaways       int
	RemainingGiveaways *int
	UsedGiveaways      int
	ClicksOpened       int
	ClicksClosed       int
	Registrations      int

	Extra map[string]json.RawMessage
}

type promotionJSON struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	StartDate          string `json:"startDate"`
	EndDate            string `json:"endDate"`
	Description        string `json:"description"`
	Details            string `json:"details"`
	MaxGiveaways       int    `json:"maxGiveaways,omitempty"`
	RemainingGiveaways *int   `json:"remainingGiveaways,omitempty"`
	UsedGiveaways      int    `json:"usedGiveaways"`
	ClicksOpened       int    `json:"clicksOpened"`
	ClicksClosed       int    `json:"clicksClosed"`
	Registrations      int    `json:"registrations"`
}

func (p *Promotion) UnmarshalJSON(data []byte) error {
	var known promotionJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*p = Promotion{
		ID:                 known.ID,
		Type:               known.Type,
		StartDate:          known.StartDate,
		EndDate:            known.EndDate,
		Description:        known.Description,
		Details:            known.Details,
		MaxGiveaways:       known.MaxGiveaways,
		RemainingGiveaways: known.RemainingGiveaways,
		UsedGiveaways:      known.UsedGiveaways,
		ClicksOpened:       known.ClicksOpened,
		ClicksClosed:       known.ClicksClosed,
		Registrations:      known.Registrations,
	}
	for k, v := range all {
		if _, ok := promotionFields[k]; ok {
			continue
		}
		if p.Extra == nil {
			p.Extra = map[string]json.RawMessage{}
		}
		p.Extra[k] = v
	}
	return nil
}

func (p Promotion) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(promotionJSON{
		ID:                 p.ID,
		Type:               p.Type,
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		Description:        p.Description,
		Details:            p.Details,
		MaxGiveaways:       p.MaxGiveaways,
		RemainingGiveaways: p.RemainingGiveaways,
		UsedGiveaways:      p.UsedGiveaways,
		ClicksOpened:       p.ClicksOpened,
		ClicksClosed:       p.ClicksClosed,
		Registrations:      p.Registrations,
	})
	if err != nil || len(p.Extra) == 0 {
		return known, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, ok := promotionFields[k]; ok {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

func (p *Promotion) Remaining() int {
	if p.RemainingGiveaways == nil {
		return 0
	}
	return *p.RemainingGiveaways
}

// ActiveAt reports whether p is a giveaway running at now with giveaways left.
func (p *Promotion) ActiveAt(now time.Time) bool {
	if p.Type != PromotionTypeGiveaway || p.Remaining() <= 0 {
		return false
	}
	start, err := parseDate(p.StartDate)
	if err != nil {
		return false
	}
	end, err := parseDate(p.EndDate)
	if err != nil {
		return false
	}
	return !now.Before(start) && !now.After(end)
}

// EndedAt reports whether the promotion window closed before now.
func (p *Promotion) EndedAt(now time.Time) bool {
	end, err := parseDate(p.EndDate)
	return err == nil && now.After(end)
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

func (p *Promotion) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return appErr.Invalid("Promotion ID is required")
	}
	if !promotionID.MatchString(p.ID) {
		return appErr.Invalid("invalid promotion id")
	}
	for _, f := range []struct{ name, value string }{
		{"type", p.Type},
		{"startDate", p.StartDate},
		{"endDate", p.EndDate},
		{"description", p.Description},
		{"details", p.Details},
	} {
		if strings.TrimSpace(f.value) == "" {
			return appErr.Invalid("%s is required", f.name)
		}
	}
	if _, err := parseDate(p.StartDate); err != nil {
		return appErr.Invalid("startDate is not a valid date")
	}
	if _, err := parseDate(p.EndDate); err != nil {
		return appErr.Invalid("endDate is not a valid date")
	}
	if p.Type == PromotionTypeGiveaway && p.MaxGiveaways <= 0 {
		return appErr.Invalid("maxGiveaways is required for giveaway promotions")
	}
	return nil
}

var promotionID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// PromotionStore keeps one JSON file per promotion. Read-modify-write cycles
// are serialized by the store.
type PromotionStore struct {
	dir string
	mu  sync.Mutex
}

func NewPromotionStore(settingsDir string) *PromotionStore {
	return &PromotionStore{dir: filepath.Join(settingsDir, "promotions")}
}

func (s *PromotionStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// List returns all promotions ordered by id. Unreadable files are logged and
// skipped.
func (s *PromotionStore) List(ctx context.Context) ([]*Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx)
}

func (s *PromotionStore) list(ctx context.Context) ([]*Promotion, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []*Promotion{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read promotions dir: %w", err)
	}
	out := make([]*Promotion, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		p, err := s.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			logutil.GetLogger(ctx).Warn("skip unreadable promotion", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *PromotionStore) read(id string) (*Promotion, error) {
	raw, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, appErr.NotFound("promotion %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	var p Promotion
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode promotion %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

func (s *PromotionStore) write(p *Promotion) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode promotion: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create promotions dir: %w", err)
	}
	path := s.path(p.ID)
	if err := atomic.WriteFile(path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write promotion: %w", err)
	}
	return os.Chmod(path, 0o644)
}

func (s *PromotionStore) Get(ctx context.Context, id string) (*Promotion, error) {
	if !promotionID.MatchString(id) {
		return nil, appErr.Invalid("invalid promotion id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// Save creates or replaces a promotion. A giveaway saved for the first time
// without remainingGiveaways starts with maxGiveaways left.
func (s *PromotionStore) Save(ctx context.Context, p *Promotion) error {
	if err := p.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Type == PromotionTypeGiveaway && p.RemainingGiveaways == nil {
		prev, err := s.read(p.ID)
		switch {
		case err == nil && prev.RemainingGiveaways != nil:
			remaining := *prev.RemainingGiveaways
			p.RemainingGiveaways = &remaining
		case err == nil || appErr.IsNotFound(err):
			remaining := p.MaxGiveaways
			p.RemainingGiveaways = &remaining
		default:
			return err
		}
	}
	if err := s.write(p); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("promotion saved", zap.String("id", p.ID), zap.String("type", p.Type))
	return nil
}

func (s *PromotionStore) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return appErr.Invalid("Promotion ID is required")
	}
	if !promotionID.MatchString(id) {
		return appErr.Invalid("invalid promotion id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return appErr.NotFound("promotion %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	logutil.GetLogger(ctx).Info("promotion deleted", zap.String("id", id))
	return nil
}

// Track counts a visitor interaction with the promotion banner.
func (s *PromotionStore) Track(ctx context.Context, id, action string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(action) == "" {
		return appErr.Invalid("Promotion ID and action are required")
	}
	return s.update(ctx, id, func(p *Promotion) error {
		switch action {
		case ActionOpen:
			p.ClicksOpened++
		case ActionClose:
			p.ClicksClosed++
		case ActionRegister:
			p.Registrations++
		default:
			return appErr.Invalid("Invalid action")
		}
		return nil
	})
}

// ConsumeGiveaway takes one giveaway from promotion id. It returns false
// when none were left.
func (s *PromotionStore) ConsumeGiveaway(ctx context.Context, id string) (bool, error) {
	consumed := false
	err := s.update(ctx, id, func(p *Promotion) error {
		if p.Remaining() <= 0 {
			return nil
		}
		remaining := p.Remaining() - 1
		p.RemainingGiveaways = &remaining
		p.UsedGiveaways++
		consumed = true
		return nil
	})
	return consumed, err
}

func (s *PromotionStore) update(ctx context.Context, id string, fn func(p *Promotion) error) error {
	if !promotionID.MatchString(id) {
		return appErr.Invalid("invalid promotion id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.read(id)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		return err
	}
	return s.write(p)
}

// Active returns the first giveaway, in id order, running at now with
// giveaways left, or nil.
func (s *PromotionStore) Active(ctx context.Context, now time.Time) (*Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.ActiveAt(now) {
			return p, nil
		}
	}
	return nil, nil
}
