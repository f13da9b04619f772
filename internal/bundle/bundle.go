package bundle

import "context"

// Bundle is a self-contained unit of metadata installation.
type Bundle interface {
	// ID uniquely identifies the bundle within a distribution.
	ID() string

	// Requires lists the IDs of bundles that must be installed first.
	Requires() []string

	// Install writes the bundle's metadata. It must be safe to run again on
	// a database that already holds the bundle's objects.
	Install(ctx context.Context) error
}

// Func adapts a plain function to the Bundle interface.
type Func struct {
	Name    string
	Prereqs []string
	Run     func(ctx context.Context) error
}

// New returns a Bundle named id that runs fn after requires.
func New(id string, fn func(ctx context.Context) error, requires ...string) *Func {
	return &Func{Name: id, Prereqs: requires, Run: fn}
}

func (f *Func) ID() string { return f.Name }

func (f *Func) Requires() []string { return f.Prereqs }

func (f *Func) Install(ctx context.Context) error {
	if f.Run == nil {
		return nil
	}
	return f.Run(ctx)
}

// IDs returns the IDs of bundles in order.
func IDs(bundles []Bundle) []string {
	out := make([]string, len(bundles))
	for i, b := range bundles {
		out[i] = b.ID()
	}
	return out
}
