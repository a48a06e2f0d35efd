package preflight

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"palette/internal/config"
	"palette/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Pinger is any collaborator that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Targets selects which checks apply to a command.
type Targets struct {
	// Remote is checked when non-nil.
	Remote Pinger
	// Classifier is checked when non-nil, along with the video probe binary.
	Classifier Pinger
	// Move requires path mappings and a writable destination root.
	Move bool
}

// Check is one independent readiness probe.
type Check func(ctx context.Context) Result

// Plan lists the checks that apply to cfg and targets, in display order.
func Plan(cfg *config.Config, targets Targets) []Check {
	if cfg == nil {
		return nil
	}
	checks := []Check{
		func(context.Context) Result { return CheckDirectoryAccess("State directory", cfg.Paths.StateDir) },
	}
	if targets.Move || len(cfg.PathMappings) > 0 {
		checks = append(checks, func(context.Context) Result { return CheckPathMappings(cfg.PathMappings, targets.Move) })
	}
	if targets.Move {
		checks = append(checks, func(context.Context) Result { return CheckDestinationRoot(cfg.Move.DestinationRoot, cfg.PathMappings) })
	}
	if targets.Remote != nil {
		checks = append(checks, func(ctx context.Context) Result { return CheckService(ctx, "Immich", targets.Remote) })
	}
	if targets.Classifier != nil {
		checks = append(checks,
			func(ctx context.Context) Result { return CheckService(ctx, "Classifier", targets.Classifier) },
			func(context.Context) Result { return CheckBinary("FFprobe", cfg.FFprobeBinary(), true) },
		)
	}
	return checks
}

// RunAll executes all applicable checks concurrently and returns their results
// in plan order.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	return Run(ctx, Plan(cfg, targets)...)
}

// Run executes checks concurrently. Checks never fail the group; each
// records its own outcome.
func Run(ctx context.Context, checks ...Check) []Result {
	results := make([]Result, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			results[i] = check(gctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Err folds failed required checks into one configuration error, or nil.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(failed, "; "), nil)
}
