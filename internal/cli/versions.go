package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowc/pkg/config"
	"github.com/matzehuels/flowc/pkg/lockfile"
	"github.com/matzehuels/flowc/pkg/pipeline"
)

// Lock store backends selectable with --store.
const (
	storeFile  = "file"
	storeMongo = "mongo"
)

// mongoURIEnv supplies --mongo-uri when the flag is not set.
const mongoURIEnv = "FLOWC_MONGO_URI"

type storeOptions struct {
	kind     string
	mongoURI string
	mongoDB  string
}

func (o *storeOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.kind, "store", storeFile, "where computed versions are saved (file|mongo)")
	cmd.Flags().StringVar(&o.mongoURI, "mongo-uri", "", "MongoDB connection string (default $"+mongoURIEnv+")")
	cmd.Flags().StringVar(&o.mongoDB, "mongo-db", lockfile.DefaultMongoDatabase, "MongoDB database")
}

// open returns the lock store selected by the flags.
func (o *storeOptions) open(ctx context.Context, cfg *config.Config) (lockfile.Store, error) {
	switch o.kind {
	case "", storeFile:
		return lockfile.NewFileStore(cfg.LockPath(lockfile.VersionsFile)), nil
	case storeMongo:
		uri := o.mongoURI
		if uri == "" {
			uri = os.Getenv(mongoURIEnv)
		}
		if uri == "" {
			return nil, fmt.Errorf("--store mongo needs --mongo-uri or $%s", mongoURIEnv)
		}
		s, err := lockfile.NewMongoStore(ctx, lockfile.MongoOptions{URI: uri, Database: o.mongoDB})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q (want %s or %s)", o.kind, storeFile, storeMongo)
	}
}

// openRunner creates a runner that saves versions to the store selected by
// the flags. The runner's cache is released again if the store cannot be
// opened.
func (c *CLI) openRunner(ctx context.Context, cfg *config.Config, store *storeOptions, noCache bool) (*pipeline.Runner, error) {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return nil, err
	}
	s, err := store.open(ctx, cfg)
	if err != nil {
		_ = runner.Close()
		return nil, err
	}
	runner.Store = s
	return runner, nil
}

// versionsCommand computes the SDK range of every flow.
func (c *CLI) versionsCommand() *cobra.Command {
	var (
		store   storeOptions
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Infer the SDK version range of every flow",
		Long: `Resolve every flow's module graph, infer the host SDK versions it can run
on and save the result to versions.lock (or MongoDB with --store mongo).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadProject()
			if err != nil {
				return err
			}
			runner, err := c.openRunner(ctx, cfg, &store, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			prog := newProgress(c.Logger)
			versions, err := runner.Versions(ctx, cfg)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Computed versions for %d flows", len(versions)))

			writeVersionsTable(cmd.OutOrStdout(), cfg, versions)
			for alias, iv := range versions {
				if iv.Empty() {
					printWarning("%s has no compatible SDK version (%s)", alias, iv)
				}
			}
			if store.kind == storeMongo {
				printSuccess("Saved to MongoDB database %s", store.mongoDB)
			} else {
				printSuccess("Saved %s", lockfile.VersionsFile)
				printFile(cfg.LockPath(lockfile.VersionsFile))
			}
			printNextStep("Bundle the flows", appName+" bundle")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "recompute every module instead of reusing the graph cache")
	store.register(cmd)
	return cmd
}
