package batch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"palette/internal/classify"
	"palette/internal/logging"
	"palette/internal/pathmap"
	"palette/internal/results"
	"palette/internal/services"
)

// Remote is the asset-server surface used for tagging.
type Remote interface {
	CreateOrGetTag(ctx context.Context, name string) (string, error)
	AddTagToAssets(ctx context.Context, ids []string, tagID string) error
	FindAssetByPath(ctx context.Context, remotePath string) (string, bool, error)
}

// Processor classifies folders against a shared result store.
type Processor struct {
	store      *results.Store
	classifier classify.Classifier
	remote     Remote
	translator *pathmap.Translator
	logger     *slog.Logger
}

// Option customizes a Processor.
type Option func(*Processor)

// WithRemote enables tagging through remote, translating local paths with
// translator.
func WithRemote(remote Remote, translator *pathmap.Translator) Option {
	return func(p *Processor) {
		p.remote = remote
		p.translator = translator
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor wires a processor around an open store.
func NewProcessor(store *results.Store, classifier classify.Classifier, opts ...Option) *Processor {
	p := &Processor{
		store:      store,
		classifier: classifier,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "batch")
	return p
}

// Options controls cache use for one folder run.
type Options struct {
	// Force reclassifies every file regardless of the cache.
	Force bool
	// Quick trusts cached records by path without rehashing.
	Quick bool
	// RetryErrors reclassifies files whose cached record is an error.
	RetryErrors bool
}

// Item is the outcome for one file.
type Item struct {
	Path   string
	Result classify.Result
	Cached bool
	Err    error
}

// Summary aggregates one folder run.
type Summary struct {
	Files        int
	Classified   int
	Cached       int
	Images       int
	Videos       int
	Positive     int
	Errors       int
	Skipped      int
	Interrupted  bool
	Items        []Item
	TaggedAssets []string
	TagErrors    int
}

// Rows flattens every item into the reporting schema.
func (s Summary) Rows() []classify.Row {
	rows := make([]classify.Row, 0, len(s.Items))
	for _, item := range s.Items {
		rows = append(rows, item.Result.Flat(item.Path))
	}
	return rows
}

// skip records an entry the walk could not read. It counts as an error but
// was never classified.
func (s *Summary) skip(item Item) {
	s.Items = append(s.Items, item)
	s.Skipped++
	s.Errors++
}

func (s *Summary) add(item Item) {
	s.Items = append(s.Items, item)
	if item.Cached {
		s.Cached++
	} else {
		s.Classified++
	}
	switch item.Result.Kind {
	case classify.KindImage:
		s.Images++
	case classify.KindVideo:
		s.Videos++
	default:
		s.Errors++
	}
	if item.Result.IsPositive() {
		s.Positive++
	}
}

// CollectFiles returns every supported media file below root in lexical
// order. Entries that cannot be read below root are not fatal: each comes
// back as a failed item and the walk moves on, skipping unreadable
// directories. Only an unusable root is an error.
func CollectFiles(root string) ([]string, []Item, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "batch", "collect", root, err)
	}
	if !info.IsDir() {
		if _, ok := classify.KindForPath(root); ok {
			return []string{filepath.Clean(root)}, nil, nil
		}
		return nil, nil, services.Wrap(services.ErrConfiguration, "batch", "collect",
			fmt.Sprintf("%s is not a folder or supported media file", root), nil)
	}

	var (
		files   []string
		skipped []Item
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			wrapped := services.Wrap(services.ErrCorrupt, "batch", "collect", path, walkErr)
			skipped = append(skipped, Item{Path: path, Result: classify.Failure(wrapped.Error()), Err: wrapped})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := classify.KindForPath(path); ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, services.Wrap(services.ErrCorrupt, "batch", "collect", root, err)
	}
	return files, skipped, nil
}

// ProcessFolder classifies every supported file under root. Cancellation
// stops classification at the next file; results gathered so far are still
// saved and tagged, and the context error is returned with the summary.
func (p *Processor) ProcessFolder(ctx context.Context, root string, opts Options) (Summary, error) {
	var summary Summary
	files, skipped, err := CollectFiles(root)
	if err != nil {
		return summary, err
	}
	summary.Files = len(files)
	for _, item := range skipped {
		p.logger.Warn("skipping unreadable entry",
			logging.String(logging.FieldPath, item.Path),
			logging.Error(item.Err),
		)
		summary.skip(item)
	}
	p.logger.Info("processing folder",
		logging.String(logging.FieldPath, root),
		logging.Int("files", len(files)),
		logging.Int("skipped", len(skipped)),
		logging.Bool("force", opts.Force),
		logging.Bool("quick", opts.Quick),
	)

	// Saving and tagging outlive cancellation of the walk.
	persistCtx := context.WithoutCancel(ctx)

	for _, path := range files {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		item, ok := p.processFile(ctx, persistCtx, path, opts)
		if !ok {
			summary.Interrupted = true
			break
		}
		summary.add(item)
	}
	if summary.Interrupted {
		p.logger.Warn("classification interrupted, keeping partial results",
			logging.Int("done", summary.Classified+summary.Cached),
			logging.Int("files", summary.Files),
		)
	}

	if p.remote != nil {
		tagged, tagErrors := p.tagItems(persistCtx, summary.Items)
		summary.TaggedAssets = tagged
		summary.TagErrors = tagErrors
	}

	p.logger.Info("folder complete",
		logging.Int("classified", summary.Classified),
		logging.Int("cached", summary.Cached),
		logging.Int("positive", summary.Positive),
		logging.Int("errors", summary.Errors),
		logging.Int("tagged", len(summary.TaggedAssets)),
	)
	if summary.Interrupted {
		return summary, context.Cause(ctx)
	}
	return summary, nil
}

// processFile returns false when classification was cut short by
// cancellation and nothing should be recorded for path.
func (p *Processor) processFile(ctx, persistCtx context.Context, path string, opts Options) (Item, bool) {
	logger := p.logger.With(logging.String(logging.FieldPath, path))

	if !opts.Force {
		check := p.store.CheckIfProcessed
		if opts.Quick {
			check = p.store.CheckQuick
		}
		needs, cached, err := check(persistCtx, path)
		switch {
		case err != nil:
			logger.Warn("cache check failed, reclassifying", logging.Error(err))
		case !needs && cached != nil && !(opts.RetryErrors && cached.Kind == classify.KindError):
			return Item{Path: path, Result: cached.Result(), Cached: true}, true
		}
	}

	result, err := p.classifier.Classify(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return Item{}, false
		}
		logger.Warn("classification failed", logging.String("error_kind", services.Kind(err)), logging.Error(err))
		result = classify.Failure(err.Error())
	}

	item := Item{Path: path, Result: result, Err: err}
	if _, saveErr := p.store.Save(persistCtx, path, result); saveErr != nil {
		logger.Warn("save result failed", logging.Error(saveErr))
		if item.Err == nil {
			item.Err = saveErr
		}
	}
	logger.Debug("classified",
		logging.String("kind", string(result.Kind)),
		logging.Bool("positive", result.IsPositive()),
		logging.Float64("confidence", result.Confidence()),
	)
	return item, true
}
