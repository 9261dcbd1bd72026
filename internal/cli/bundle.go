package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowc/pkg/lockfile"
)

// bundleCommand bundles every flow and writes the lock files.
func (c *CLI) bundleCommand() *cobra.Command {
	var (
		watch   bool
		noCache bool
		store   storeOptions
	)

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Bundle every flow into a single Lua file",
		Long: `Bundle every flow of the project into <output_directory>/<alias>.bundle.luau,
record the bundle hashes in hashes.lock and the inferred SDK ranges in
versions.lock.

With --watch, flowc keeps running and rebundles whenever a source file,
the project file or the version file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.runBundle(ctx, &store, noCache); err != nil {
				if !watch {
					return err
				}
				printError("%v", err)
			}
			if !watch {
				return nil
			}
			cfg, err := c.loadProject()
			if err != nil {
				return err
			}
			printInfo("Watching %s for changes (ctrl+c to stop)", cfg.Dir())
			return c.watch(ctx, cfg, func() error {
				return c.runBundle(ctx, &store, noCache)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebundle when sources change")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not record the module graph in the cache")
	store.register(cmd)
	return cmd
}

// runBundle reloads the project and bundles it once.
func (c *CLI) runBundle(ctx context.Context, store *storeOptions, noCache bool) error {
	cfg, err := c.loadProject()
	if err != nil {
		return err
	}
	runner, err := c.openRunner(ctx, cfg, store, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Bundle(ctx, cfg)
	if err != nil {
		return err
	}

	aliases := make([]string, 0, len(res.Bundles))
	for alias := range res.Bundles {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	printSuccess("Bundled %s flows in %s", StyleNumber.Render(fmt.Sprint(len(aliases))), res.Elapsed.Round(time.Millisecond))
	for _, alias := range aliases {
		printFile(res.Bundles[alias])
	}
	printDetail("%s and %s updated", lockfile.HashesFile, lockfile.VersionsFile)
	for _, alias := range aliases {
		if iv := res.Versions[alias]; iv.Empty() {
			printWarning("%s has no compatible SDK version (%s)", alias, iv)
		}
	}
	return nil
}
