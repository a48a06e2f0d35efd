package mover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"palette/internal/fileutil"
	"palette/internal/immich"
	"palette/internal/logging"
	"palette/internal/pathmap"
	"palette/internal/services"
)

// RemoteClient is the asset-server surface the mover needs.
type RemoteClient interface {
	CreateOrGetTag(ctx context.Context, name string) (string, error)
	ListAssetsByTag(ctx context.Context, tagID string) ([]immich.Asset, error)
	DeleteAssets(ctx context.Context, ids []string) error
}

// Mover moves tagged assets into the archive root.
type Mover struct {
	client     RemoteClient
	translator *pathmap.Translator
	destRoot   string
	dryRun     bool
	logger     *slog.Logger
	runID      string
	now        func() time.Time

	mu           sync.Mutex
	transactions []Transaction
}

// Option customizes a Mover.
type Option func(*Mover)

// WithDryRun simulates moves and deletions.
func WithDryRun(enabled bool) Option {
	return func(m *Mover) { m.dryRun = enabled }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mover) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(m *Mover) {
		if id = strings.TrimSpace(id); id != "" {
			m.runID = id
		}
	}
}

// New constructs a mover rooted at destRoot.
func New(client RemoteClient, translator *pathmap.Translator, destRoot string, opts ...Option) *Mover {
	m := &Mover{
		client:     client,
		translator: translator,
		destRoot:   strings.TrimSpace(destRoot),
		logger:     logging.NewNop(),
		runID:      uuid.NewString(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "mover")
	return m
}

// RunID identifies this mover's run in logs and exports.
func (m *Mover) RunID() string { return m.runID }

// DryRun reports whether the mover only simulates.
func (m *Mover) DryRun() bool { return m.dryRun }

// Transactions returns a copy of the recorded transactions.
func (m *Mover) Transactions() []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.transactions)
}

func (m *Mover) record(tx Transaction) {
	m.mu.Lock()
	m.transactions = append(m.transactions, tx)
	m.mu.Unlock()
}

// ProcessTaggedAssets moves every asset carrying tagName. Per-asset failures
// are recorded and counted; only configuration problems, a failed tag or
// listing call, and cancellation end the run early. On cancellation the
// partial summary is returned with the context error.
func (m *Mover) ProcessTaggedAssets(ctx context.Context, tagName string) (Summary, error) {
	var summary Summary
	if m.translator == nil || m.translator.Len() == 0 {
		return summary, services.Wrap(services.ErrConfiguration, "mover", "start", "no path mappings configured", nil)
	}
	if m.destRoot == "" {
		return summary, services.Wrap(services.ErrConfiguration, "mover", "start", "destination root is not set", nil)
	}
	for _, mapping := range m.translator.Mappings() {
		if fileutil.Within(mapping.Local, m.destRoot) {
			return summary, services.Wrap(services.ErrConfiguration, "mover", "start",
				fmt.Sprintf("destination root %s is inside mapped library %s", m.destRoot, mapping.Local), nil)
		}
	}

	ctx = services.WithRunID(ctx, m.runID)
	ctx = services.WithStage(ctx, "move")
	logger := logging.WithContext(ctx, m.logger)

	tagID, err := m.client.CreateOrGetTag(ctx, tagName)
	if err != nil {
		return summary, fmt.Errorf("resolve tag %q: %w", tagName, err)
	}
	assets, err := m.client.ListAssetsByTag(ctx, tagID)
	if err != nil {
		return summary, fmt.Errorf("list assets tagged %q: %w", tagName, err)
	}
	summary.Total = len(assets)
	logger.Info("processing tagged assets",
		logging.String("tag", tagName),
		logging.Int("count", len(assets)),
		logging.Bool("dry_run", m.dryRun),
	)

	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			logger.Warn("move run interrupted", logging.Int("remaining", summary.Total-len(m.Transactions())))
			return summary, err
		}
		tx := m.processAsset(ctx, asset)
		if tx.MoveSucceeded {
			summary.Moved++
		}
		if tx.DeleteSucceeded {
			summary.Deleted++
		}
		if tx.State == StateFailed {
			summary.Failed++
		}
		m.record(tx)
	}

	logger.Info("move run complete",
		logging.Int("total", summary.Total),
		logging.Int("moved", summary.Moved),
		logging.Int("deleted", summary.Deleted),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (m *Mover) processAsset(ctx context.Context, asset immich.Asset) Transaction {
	ctx = services.WithAssetID(ctx, asset.ID)
	logger := logging.WithContext(ctx, m.logger)
	tx := Transaction{AssetID: asset.ID, RemotePath: asset.OriginalPath, State: StateDiscovered}

	if strings.TrimSpace(asset.OriginalPath) == "" {
		tx.fail(services.Kind(services.ErrNotFound), ErrMsgNoOriginalPath)
		logger.Warn("asset has no original path")
		return tx
	}

	source, ok := m.translator.ToLocal(asset.OriginalPath)
	if !ok {
		tx.fail(services.Kind(services.ErrNotFound), ErrMsgNoMapping)
		logger.Warn("no path mapping for asset", logging.String(logging.FieldPath, asset.OriginalPath))
		return tx
	}
	tx.SourcePath = source
	tx.advance(StatePathResolved)

	dest, ok := m.Destination(asset.OriginalPath)
	if !ok {
		tx.fail(services.Kind(services.ErrNotFound), ErrMsgNoDestination)
		logger.Warn("could not compute destination", logging.String(logging.FieldPath, asset.OriginalPath))
		return tx
	}
	tx.DestPath = dest
	tx.advance(StateDestinationComputed)

	if err := m.Move(source, dest); err != nil {
		tx.fail(services.Kind(err), fmt.Sprintf("%s: %v", ErrMsgMoveFailed, err))
		logger.Warn("move failed",
			logging.String("source", source),
			logging.String("destination", dest),
			logging.Error(err),
		)
		return tx
	}
	tx.MoveSucceeded = true
	tx.advance(StateMoved)

	if m.dryRun {
		tx.DeleteSucceeded = true
		tx.advance(StateDeleted)
		logger.Info("would move and delete asset",
			logging.String("source", source),
			logging.String("destination", dest),
		)
		return tx
	}

	if err := m.client.DeleteAssets(ctx, []string{asset.ID}); err != nil {
		tx.fail(services.Kind(err), fmt.Sprintf("%s: %v", ErrMsgDeleteFailed, err))
		logger.Warn("remote delete failed after move", logging.String("destination", dest), logging.Error(err))
		return tx
	}
	tx.DeleteSucceeded = true
	tx.advance(StateDeleted)
	logger.Info("moved asset",
		logging.String("source", source),
		logging.String("destination", dest),
	)
	return tx
}

// Destination maps a remote path under the archive root by stripping the
// matched remote prefix. It reports false when no mapping covers the path or
// the remainder is empty or climbs out of the root.
func (m *Mover) Destination(remotePath string) (string, bool) {
	if m.translator == nil || m.destRoot == "" {
		return "", false
	}
	_, rest, ok := m.translator.MatchRemote(remotePath)
	if !ok || rest == "" {
		return "", false
	}
	for _, segment := range strings.Split(rest, "/") {
		if segment == ".." {
			return "", false
		}
	}
	return filepath.Join(m.destRoot, filepath.FromSlash(rest)), true
}

// Move relocates src to dst. A nil error means success. In dry-run mode only
// the existence of src and the same-file check run. An existing dst with
// identical content is treated as already moved and only src is removed;
// differing content is a conflict and src is left untouched. A dst that is
// the same file as src (same path, hardlink or symlink) is always a conflict.
func (m *Mover) Move(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "mover", "move", src, err)
		}
		return services.Wrap(services.ErrCorrupt, "mover", "stat source", src, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrCorrupt, "mover", "move", src+" is a directory", nil)
	}

	dstInfo, err := os.Stat(dst)
	switch {
	case err == nil:
		if os.SameFile(info, dstInfo) {
			return services.Wrap(services.ErrConflict, "mover", "move",
				fmt.Sprintf("%s and %s are the same file", src, dst), nil)
		}
	case !errors.Is(err, os.ErrNotExist):
		return services.Wrap(services.ErrCorrupt, "mover", "stat destination", dst, err)
	}
	if m.dryRun {
		return nil
	}

	if dstInfo != nil {
		same, hashErr := fileutil.SameContent(src, dst)
		if hashErr != nil {
			return services.Wrap(services.ErrCorrupt, "mover", "compare", dst, hashErr)
		}
		if !same {
			return services.Wrap(services.ErrConflict, "mover", "move",
				fmt.Sprintf("%s already exists with different content", dst), nil)
		}
		if err := os.Remove(src); err != nil {
			return fmt.Errorf("remove redundant source: %w", err)
		}
		return nil
	}

	return fileutil.MoveFile(src, dst)
}
