package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/doctree"
)

// TreeCheckJob reports pages without content file and duplicated paths or
// slugs in meta.json. It never modifies the tree.
type TreeCheckJob struct {
	tree *doctree.Manager
}

func NewTreeCheckJob(tree *doctree.Manager) *TreeCheckJob {
	return &TreeCheckJob{tree: tree}
}

func (j *TreeCheckJob) Name() string {
	return "tree_check"
}

func (j *TreeCheckJob) Run(ctx context.Context) error {
	report, err := j.tree.Check(ctx)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("job", j.Name()))
	if report.OK() {
		logger.Debug("document tree consistent")
		return nil
	}
	logger.Warn("document tree inconsistent",
		zap.Strings("missing_content", report.MissingContent),
		zap.Strings("duplicate_paths", report.DuplicatePaths),
		zap.Strings("duplicate_slugs", report.DuplicateSlugs),
	)
	return nil
}
