package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/sentinel/internal/config"
	"github.com/dshills/sentinel/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Index the functions and classes of a source tree",
	Long: "Walk dir (default: the working directory), parse changed Python, Java " +
		"and Go files, embed every symbol and store it for later audits. Files " +
		"whose content hash is unchanged are skipped.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		cfg, err := config.Load(globalOverrides())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
		if err != nil {
			return fail(cmd, err)
		}
		defer a.close(ctx)

		p, err := a.provider()
		if err != nil {
			return fail(cmd, err)
		}
		ix := index.NewIndexer(a.symbols(), a.db, p, a.log,
			index.WithWorkers(cfg.Index.Workers),
			index.WithBatchSize(cfg.Index.BatchSize),
		)
		res, err := ix.Run(ctx, root)
		if err != nil {
			return fail(cmd, err)
		}
		a.metrics.IndexRun(res.Files, res.Symbols, res.Removed, len(res.Failed))

		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fail(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		if len(res.Failed) > 0 {
			exitCode = ExitRuntimeError
		}
		return nil
	},
}
