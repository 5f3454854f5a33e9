package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/sentinel/internal/config"
	"github.com/dshills/sentinel/internal/gitctx"
	"github.com/dshills/sentinel/internal/github"
	"github.com/dshills/sentinel/internal/logging"
	"github.com/dshills/sentinel/internal/output"
	"github.com/dshills/sentinel/internal/redact"
	"github.com/dshills/sentinel/internal/review"
)

// Audit flags
var (
	flagDiffFile     string
	flagPR           int
	flagRepo         string
	flagPost         bool
	flagDryRun       bool
	flagProvider     string
	flagModel        string
	flagFormat       string
	flagOut          string
	flagFailOn       string
	flagContextLimit int
	flagContextLines int
	flagExclude      string
	flagNoRedact     bool
	flagNoCache      bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the symbols touched by a diff",
	Long: "Audit a diff read from --diff-file (\"-\" for stdin) or fetched from a " +
		"GitHub pull request with --pr. The staged, unstaged, commit and range " +
		"subcommands take the diff from the local git repository instead.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case flagPR > 0 && flagDiffFile != "":
			return errors.New("--pr and --diff-file are mutually exclusive")
		case flagPR > 0:
			return runPRAudit(cmd)
		case flagDiffFile != "":
			return runAudit(cmd, func(opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
				return gitctx.FromFile(flagDiffFile, cmd.InOrStdin(), opts)
			})
		default:
			return errors.New("no diff source: use --diff-file, --pr or a subcommand")
		}
	},
}

var auditStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Audit staged changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(cmd, func(opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
			return gitctx.Staged(cmd.Context(), opts)
		})
	},
}

var auditUnstagedCmd = &cobra.Command{
	Use:   "unstaged",
	Short: "Audit working tree changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(cmd, func(opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
			return gitctx.Unstaged(cmd.Context(), opts)
		})
	},
}

var auditCommitCmd = &cobra.Command{
	Use:   "commit <sha>",
	Short: "Audit a single commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(cmd, func(opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
			return gitctx.Commit(cmd.Context(), args[0], opts)
		})
	},
}

var auditRangeCmd = &cobra.Command{
	Use:   "range <a..b>",
	Short: "Audit a revision range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !strings.Contains(args[0], "..") {
			return fmt.Errorf("invalid range %q: expected a..b", args[0])
		}
		return runAudit(cmd, func(opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
			return gitctx.Range(cmd.Context(), args[0], opts)
		})
	},
}

func init() {
	pf := auditCmd.PersistentFlags()
	pf.StringVar(&flagProvider, "provider", "", "LLM provider (openai, ollama, lmstudio)")
	pf.StringVar(&flagModel, "model", "", "Chat model")
	pf.StringVarP(&flagFormat, "format", "f", "", "Output format (json, report, text, sarif)")
	pf.StringVarP(&flagOut, "out", "o", "", "Write output to file instead of stdout")
	pf.StringVar(&flagFailOn, "fail-on", "", "Exit 1 at or above this severity (none, low, medium, high)")
	pf.IntVar(&flagContextLimit, "context-limit", 0, "Similar snippets retrieved per symbol")
	pf.IntVar(&flagContextLines, "context-lines", 0, "Diff context lines for git sources")
	pf.StringVar(&flagExclude, "exclude", "", "Comma-separated glob patterns to leave out of the diff")
	pf.BoolVar(&flagNoRedact, "no-redact", false, "Send diffs and snippets without secret redaction")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Bypass the generation cache")

	f := auditCmd.Flags()
	f.StringVar(&flagDiffFile, "diff-file", "", "Unified diff to audit (- for stdin)")
	f.IntVar(&flagPR, "pr", 0, "GitHub pull request number")
	f.StringVar(&flagRepo, "repo", "", "owner/name of the pull request repository (default: origin remote)")
	f.BoolVar(&flagPost, "post", false, "Post findings as an inline review on the pull request")
	f.BoolVar(&flagDryRun, "dry-run", false, "With --post, print the review instead of sending it")

	auditCmd.AddCommand(auditStagedCmd)
	auditCmd.AddCommand(auditUnstagedCmd)
	auditCmd.AddCommand(auditCommitCmd)
	auditCmd.AddCommand(auditRangeCmd)
}

// auditOverrides maps set audit flags onto config keys.
func auditOverrides() map[string]string {
	m := globalOverrides()
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagContextLimit > 0 {
		m["contextLimit"] = strconv.Itoa(flagContextLimit)
	}
	if flagContextLines > 0 {
		m["contextLines"] = strconv.Itoa(flagContextLines)
	}
	if flagExclude != "" {
		m["exclude"] = flagExclude
	}
	if flagNoRedact {
		m["privacy.redactSecrets"] = "false"
	}
	return m
}

type diffSource func(gitctx.DiffOptions) (gitctx.DiffResult, error)

func runAudit(cmd *cobra.Command, source diffSource) error {
	cfg, err := config.Load(auditOverrides())
	if err != nil {
		return err
	}
	diff, err := source(diffOptions(cfg))
	if err != nil {
		return fail(cmd, err)
	}
	report, err := audit(cmd, cfg, diff)
	if err != nil {
		return fail(cmd, err)
	}
	return emit(cmd, cfg, report)
}

func runPRAudit(cmd *cobra.Command) error {
	cfg, err := config.Load(auditOverrides())
	if err != nil {
		return err
	}
	owner, repo, err := resolveRepo(flagRepo)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: cmd.ErrOrStderr()})
	gc, err := github.NewClient(ctx, github.Options{Logger: log})
	if err != nil {
		return fail(cmd, err)
	}
	text, err := gc.GetPRDiff(ctx, owner, repo, flagPR)
	if err != nil {
		return fail(cmd, err)
	}
	diff := gitctx.FromPR(text, diffOptions(cfg))

	report, err := audit(cmd, cfg, diff)
	if err != nil {
		return fail(cmd, err)
	}
	report.Inputs.PR = flagPR

	if flagPost {
		req := github.BuildReview(report.Findings)
		if flagDryRun {
			data, err := json.MarshalIndent(req, "", "  ")
			if err != nil {
				return fail(cmd, err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), string(data))
		} else if err := gc.PostReview(ctx, owner, repo, flagPR, req); err != nil {
			return fail(cmd, err)
		}
	}
	return emit(cmd, cfg, report)
}

func resolveRepo(flag string) (owner, repo string, err error) {
	if flag == "" {
		return github.DetectRepo()
	}
	owner, repo, ok := strings.Cut(flag, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid --repo %q: expected owner/name", flag)
	}
	return owner, repo, nil
}

func diffOptions(cfg config.Config) gitctx.DiffOptions {
	return gitctx.DiffOptions{ContextLines: cfg.ContextLines, Exclude: cfg.Exclude}
}

// audit runs the engine over one diff with the configured collaborators.
func audit(cmd *cobra.Command, cfg config.Config, diff gitctx.DiffResult) (*review.Report, error) {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	defer a.close(ctx)

	p, err := a.provider()
	if err != nil {
		return nil, err
	}
	var respCache review.ResponseCache
	if !flagNoCache {
		respCache = a.cache()
	}

	engine := review.NewEngine(review.Deps{
		Symbols:      a.symbols(),
		Searcher:     a.symbols(),
		Embedder:     p,
		Generator:    p,
		Cache:        respCache,
		Logger:       a.log,
		Recorder:     a.metrics,
		Tracer:       a.tracer,
		ContextLimit: cfg.ContextLimit,
		Redaction: redact.Policy{
			Secrets: cfg.Privacy.RedactSecrets,
			Paths:   cfg.Privacy.RedactPaths,
		},
		Version: version,
	})
	return engine.Run(ctx, review.Input{Diff: diff.Diff, Mode: diff.Mode, Range: diff.Range})
}

// emit writes the report and sets the exit code from the fail-on threshold.
func emit(cmd *cobra.Command, cfg config.Config, report *review.Report) error {
	if err := output.WriteReport(cmd.OutOrStdout(), report, cfg.Format, flagOut); err != nil {
		return fail(cmd, err)
	}
	if review.MeetsThreshold(report.Summary.HighestSeverity, cfg.FailOn) {
		exitCode = ExitFindings
	}
	return nil
}
