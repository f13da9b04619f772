package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/metadeploy/internal/bundle"
	"github.com/roach88/metadeploy/internal/chore"
	"github.com/roach88/metadeploy/internal/content"
	"github.com/roach88/metadeploy/internal/metadata"
	"github.com/roach88/metadeploy/internal/metrics"
	"github.com/roach88/metadeploy/internal/pkgimport"
	"github.com/roach88/metadeploy/internal/reconcile"
	"github.com/roach88/metadeploy/internal/store"
)

// engine wires the store, the metadata handlers and the deployment
// machinery for one command invocation.
type engine struct {
	store      *store.Store
	session    *store.Session
	reconciler *reconcile.Reconciler
	recorder   *metrics.Recorder // nil when metrics are off
	logger     *slog.Logger
	choreOut   io.Writer
}

// openEngine opens the database at path. recorder may be nil.
func openEngine(path string, logger *slog.Logger, recorder *metrics.Recorder, choreOut io.Writer) (*engine, error) {
	st, err := store.Open(path, metadata.New)
	if err != nil {
		return nil, err
	}
	session := st.NewSession()
	registry, err := metadata.NewRegistry(session, nil)
	if err != nil {
		st.Close()
		return nil, err
	}

	ropts := []reconcile.Option{reconcile.WithLogger(logger)}
	if recorder != nil {
		ropts = append(ropts, reconcile.WithObserver(recorder))
	}
	return &engine{
		store:      st,
		session:    session,
		reconciler: reconcile.New(registry, ropts...),
		recorder:   recorder,
		logger:     logger,
		choreOut:   choreOut,
	}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}

func (e *engine) gate() *pkgimport.Gate {
	factory := pkgimport.NewZipImporterFactory(e.reconciler, e.session, pkgimport.WithZipLogger(e.logger))
	return pkgimport.NewGate(e.session, factory, pkgimport.WithLogger(e.logger))
}

func (e *engine) toolkit(loader pkgimport.ResourceLoader) *bundle.Toolkit {
	return &bundle.Toolkit{
		Reconciler: e.reconciler,
		Packages:   pkgimport.Installer{Gate: e.gate(), Loader: loader},
	}
}

func (e *engine) resolver() *bundle.Resolver {
	opts := []bundle.Option{bundle.WithLogger(e.logger)}
	if e.recorder != nil {
		opts = append(opts, bundle.WithObserver(e.recorder))
	}
	return bundle.NewResolver(e.session, opts...)
}

func (e *engine) refresher() *content.Refresher {
	opts := []content.Option{content.WithLogger(e.logger)}
	if e.recorder != nil {
		opts = append(opts, content.WithObserver(e.recorder))
	}
	return content.NewRefresher(e.session, opts...)
}

func (e *engine) runner() *chore.Runner {
	return chore.NewRunner(e.session, e.store, chore.WithLogger(e.logger), chore.WithOutput(e.choreOut))
}

func (e *engine) chores() []chore.Chore {
	return metadata.Chores(e.session)
}

// S3Options are the flags selecting remote package storage.
type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

func addS3Flags(cmd *cobra.Command, o *S3Options) {
	cmd.Flags().StringVar(&o.Bucket, "s3-bucket", envOr(EnvS3Bucket, ""), "load packages from this S3 bucket (env "+EnvS3Bucket+")")
	cmd.Flags().StringVar(&o.Prefix, "s3-prefix", envOr(EnvS3Prefix, ""), "key prefix of package files (env "+EnvS3Prefix+")")
	cmd.Flags().StringVar(&o.Region, "s3-region", envOr(EnvS3Region, ""), "S3 region (env "+EnvS3Region+")")
	cmd.Flags().StringVar(&o.Endpoint, "s3-endpoint", envOr(EnvS3Endpoint, ""), "S3-compatible endpoint, path-style (env "+EnvS3Endpoint+")")
}

// packageLoader returns an S3 loader when a bucket is set and a loader over
// dir otherwise.
func packageLoader(ctx context.Context, dir string, o S3Options) (pkgimport.ResourceLoader, error) {
	if o.Bucket == "" {
		return pkgimport.FSLoader{FS: os.DirFS(dir)}, nil
	}
	return pkgimport.NewS3Loader(ctx, pkgimport.S3Config{
		Bucket:    o.Bucket,
		Prefix:    o.Prefix,
		Region:    o.Region,
		Endpoint:  o.Endpoint,
		PathStyle: o.Endpoint != "",
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
