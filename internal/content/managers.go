package content

import (
	"context"
	"log/slog"

	"github.com/roach88/metadeploy/internal/bundle"
	"github.com/roach88/metadeploy/internal/chore"
)

// Default priorities of the built-in managers. Bundles must land before the
// chores that clean up after them.
const (
	BundlePriority = 10
	ChorePriority  = 20
)

// BundleManager refreshes a distribution's bundles through a Resolver.
type BundleManager struct {
	resolver *bundle.Resolver
	bundles  []bundle.Bundle
	priority int

	// Report is the result of the last refresh. After a failure it lists the
	// bundles installed before the error.
	Report bundle.Report
}

// NewBundleManager creates a manager that installs bundles at BundlePriority.
func NewBundleManager(resolver *bundle.Resolver, bundles []bundle.Bundle) *BundleManager {
	return &BundleManager{resolver: resolver, bundles: bundles, priority: BundlePriority}
}

func (m *BundleManager) Name() string { return "bundles" }

func (m *BundleManager) Priority() int { return m.priority }

func (m *BundleManager) Refresh(ctx context.Context) error {
	report, err := m.resolver.InstallBundles(ctx, m.bundles)
	m.Report = report
	return err
}

// ChoreManager performs pending chores at ChorePriority.
type ChoreManager struct {
	runner *chore.Runner
	chores []chore.Chore
	logger *slog.Logger

	// Ran lists the chores performed by the last refresh.
	Ran []string
}

// NewChoreManager creates a manager over chores.
func NewChoreManager(runner *chore.Runner, chores []chore.Chore, logger *slog.Logger) *ChoreManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChoreManager{runner: runner, chores: chores, logger: logger}
}

func (m *ChoreManager) Name() string { return "chores" }

func (m *ChoreManager) Priority() int { return ChorePriority }

func (m *ChoreManager) Refresh(ctx context.Context) error {
	ran, err := m.runner.RunPending(ctx, m.chores)
	m.Ran = ran
	if err != nil {
		return err
	}
	m.logger.Debug("chores refreshed", "ran", len(ran), "known", len(m.chores))
	return nil
}
