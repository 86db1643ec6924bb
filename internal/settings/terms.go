package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
)

const (
	TermsTypeTerms   = "terms"
	TermsTypePrivacy = "privacy"
)

type Terms struct {
	TermsAndConditions string `json:"termsAndConditions"`
	PrivacyPolicy      string `json:"privacyPolicy"`
}

type TermsStore struct {
	path string
	mu   sync.Mutex
}

func NewTermsStore(settingsDir string) *TermsStore {
	return &TermsStore{path: filepath.Join(settingsDir, "terms.json")}
}

// Get returns the stored documents. A missing file yields empty documents.
func (s *TermsStore) Get(ctx context.Context) (*Terms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *TermsStore) read() (*Terms, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Terms{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read terms: %w", err)
	}
	var t Terms
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode terms: %w", err)
	}
	return &t, nil
}

// Update replaces one document; kind is "terms" or "privacy".
func (s *TermsStore) Update(ctx context.Context, kind, content string) (*Terms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.read()
	if err != nil {
		return nil, err
	}
	switch kind {
	case TermsTypeTerms:
		t.TermsAndConditions = content
	case TermsTypePrivacy:
		t.PrivacyPolicy = content
	default:
		return nil, appErr.Invalid("type must be terms or privacy")
	}
	raw, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode terms: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("write terms: %w", err)
	}
	if err := os.Chmod(s.path, 0o644); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("terms updated", zap.String("type", kind))
	return t, nil
}
