// Command webrascal is the CLI front-end the rewriter package is
// designed to be embedded behind: `rewrite` prints rewritten JS for a
// single file, `test` walks a directory of fixtures, rewrites each,
// and runs them through the sandboxed-realm harness. Grounded on
// demo/cmd/main.go's cobra rootCmd/subcommand wiring and color-output
// conventions, generalized from a multi-language AST demo to this
// single-purpose rewriter CLI.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/oxhq/webrascal/internal/cfg"
	"github.com/oxhq/webrascal/internal/harness"
	"github.com/oxhq/webrascal/internal/scanner"
	"github.com/oxhq/webrascal/internal/store"
	"github.com/oxhq/webrascal/internal/urlcodec"
	"github.com/oxhq/webrascal/rewriter"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// configFromEnv loads a .env file if present (silently ignored if
// absent — a bare CLI invocation with no overrides is the common
// case) and builds a Config override table from WEBRASCAL_* variables,
// so an embedding's shim can win over the canonical $webrascal$* ABI
// without a single code change here.
func configFromEnv() cfg.Config {
	_ = godotenv.Load()

	overrides := map[string]string{}
	for _, key := range []string{
		"prefix", "wrapfn", "wrappropertybase", "wrappropertyfn", "cleanrestfn",
		"importfn", "rewritefn", "setrealmfn", "metafn", "pushsourcemapfn",
		"trysetfn", "templocid", "tempunusedid",
	} {
		envKey := "WEBRASCAL_" + strings.ToUpper(key)
		if v, ok := os.LookupEnv(envKey); ok {
			overrides[key] = v
		}
	}
	return cfg.Default().Override(overrides)
}

func newRewriteCmd() *cobra.Command {
	var (
		input    string
		base     string
		isModule bool
		showDiff bool
	)

	c := &cobra.Command{
		Use:   "rewrite",
		Short: "Rewrite a JavaScript file for sandboxed execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}

			r := rewriter.New(configFromEnv(), urlcodec.Prefix{})
			flags := cfg.DefaultFlags()
			flags.Base = base
			flags.IsModule = isModule

			result, err := r.RewriteBytes(src, flags)
			if err != nil {
				return fmt.Errorf("rewrite %s: %w", input, err)
			}

			if showDiff {
				fmt.Println(unifiedDiff(string(src), string(result.JS), input))
			} else {
				fmt.Print(string(result.JS))
			}

			fmt.Fprintf(os.Stderr, "%d error(s)\n", len(result.Errors))
			return nil
		},
	}

	c.Flags().StringVar(&input, "input", "", "path to the JavaScript file to rewrite")
	c.Flags().StringVar(&base, "base", "about:blank", "base URL to resolve rewritten URL literals against")
	c.Flags().BoolVar(&isModule, "module", false, "mark the input as an ES module (recorded in the flags; the output is the same either way)")
	c.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff instead of the rewritten source")
	c.MarkFlagRequired("input")

	return c
}

func newTestCmd() *cobra.Command {
	var (
		dir          string
		recordDSN    string
		noGitignore  bool
		maxBytes     int64
		includeGlobs []string
		excludeGlobs []string
	)

	c := &cobra.Command{
		Use:   "test",
		Short: "Rewrite every JS fixture under a directory and run it in the sandbox harness",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := scanner.New(scanner.Config{
				NoGitignore:  noGitignore,
				MaxBytes:     maxBytes,
				IncludeGlobs: includeGlobs,
				ExcludeGlobs: excludeGlobs,
			})

			paths, err := s.ScanTargets(cmd.Context(), []string{dir})
			if err != nil {
				return fmt.Errorf("scan %s: %w", dir, err)
			}

			r := rewriter.New(configFromEnv(), urlcodec.Prefix{})
			flags := cfg.DefaultFlags()
			flags.Base = "https://example.com/"
			flags.DoSourceMaps = false

			started := time.Now()
			var files []harness.File
			var fileErrors = map[string][]string{}

			for _, path := range paths {
				src, err := os.ReadFile(path)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s skip %s: %v\n", yellow("WARN"), path, err)
					continue
				}
				result, err := r.RewriteBytes(src, flags)
				if err != nil {
					fileErrors[path] = []string{err.Error()}
					continue
				}
				fileErrors[path] = result.Errors
				files = append(files, harness.File{Path: path, Rewritten: result.JS})
			}

			passed, failed, outcomes := harness.Tally(files)
			for _, o := range outcomes {
				if o.Passed {
					fmt.Println(green(o.Summary()))
				} else {
					fmt.Println(red(o.Summary()))
				}
			}

			fmt.Printf("\n%s %d passed, %d failed (%s)\n", bold("RESULT"), passed, failed, time.Since(started).Round(time.Millisecond))

			if recordDSN != "" {
				if err := recordRun(recordDSN, dir, started, passed, failed, outcomes, fileErrors); err != nil {
					fmt.Fprintf(os.Stderr, "%s record run: %v\n", yellow("WARN"), err)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d test file(s) failed", failed)
			}
			return nil
		},
	}

	c.Flags().StringVar(&dir, "dir", ".", "directory to scan for .js fixtures")
	c.Flags().StringVar(&recordDSN, "record", "", "SQLite DSN to persist this run's results to (empty disables recording)")
	c.Flags().BoolVar(&noGitignore, "no-gitignore", false, "do not skip files matched by .gitignore")
	c.Flags().Int64Var(&maxBytes, "max-bytes", 0, "skip files larger than this many bytes (0 = unlimited)")
	c.Flags().StringSliceVar(&includeGlobs, "include", nil, "only scan files matching these globs")
	c.Flags().StringSliceVar(&excludeGlobs, "exclude", nil, "skip files matching these globs")

	return c
}

func newHistoryCmd() *cobra.Command {
	var (
		dsn   string
		limit int
	)

	c := &cobra.Command{
		Use:   "history",
		Short: "Report pass/fail trends across recorded `test` runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Connect(dsn, false)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}

			runs, err := store.RecentRuns(db, limit)
			if err != nil {
				return fmt.Errorf("load runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("no recorded runs")
				return nil
			}

			for _, run := range runs {
				line := fmt.Sprintf("%s  %-9s  %3d passed  %3d failed  %s",
					run.StartedAt.Format(time.RFC3339), run.Duration.Round(time.Millisecond), run.Passed, run.Failed, run.Directory)
				if run.Failed > 0 {
					fmt.Println(red(line))
				} else {
					fmt.Println(green(line))
				}
			}
			return nil
		},
	}

	c.Flags().StringVar(&dsn, "db", "", "SQLite DSN the run history was recorded to")
	c.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show, most recent first")
	c.MarkFlagRequired("db")

	return c
}

func recordRun(dsn, dir string, started time.Time, passed, failed int, outcomes []harness.Outcome, fileErrors map[string][]string) error {
	db, err := store.Connect(dsn, false)
	if err != nil {
		return err
	}

	run := store.TestRun{
		ID:        runID(started),
		Directory: dir,
		StartedAt: started,
		Duration:  time.Since(started),
		FileCount: len(outcomes),
		Passed:    passed,
		Failed:    failed,
	}
	for i, o := range outcomes {
		run.Files = append(run.Files, store.FileResult{
			ID:     run.ID + "-" + strconv.Itoa(i),
			RunID:  run.ID,
			Path:   o.Path,
			Passed: o.Passed,
			Errors: store.JSONStrings(fileErrors[o.Path]),
		})
	}

	return db.Create(&run).Error
}

func runID(t time.Time) string {
	return "run-" + strconv.FormatInt(t.UnixNano(), 36)
}

func unifiedDiff(orig, modified, filename string) string {
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(orig),
		B:        difflib.SplitLines(modified),
		FromFile: filename,
		ToFile:   filename + " (rewritten)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return "(diff error: " + err.Error() + ")"
	}

	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			sb.WriteString(green(line) + "\n")
		case strings.HasPrefix(line, "-"):
			sb.WriteString(red(line) + "\n")
		default:
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

func main() {
	root := &cobra.Command{
		Use:   "webrascal",
		Short: "Rewrite JavaScript for a sandboxed browsing context",
	}

	root.AddCommand(newRewriteCmd(), newTestCmd(), newHistoryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}
