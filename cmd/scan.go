package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"snappurge/config"
	"snappurge/curate"
	"snappurge/engine"
	"snappurge/logging"
	"snappurge/signalhandler"
	"snappurge/utils"
)

type scanFlags struct {
	noRecursive bool
	strictness  int
	workers     int
	algorithm   string
	reportPath  string
	jsonOutput  bool
	keepBest    bool
	moveTo      string
	trash       bool
}

// scanResult is the JSON form of a finished scan
type scanResult struct {
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	Root       string            `json:"root"`
	Strictness int               `json:"strictness"`
	Total      int               `json:"total"`
	Hashed     int               `json:"hashed"`
	Failed     int               `json:"failed"`
	Summary    curate.Summary    `json:"summary"`
	Groups     []scanGroup       `json:"groups"`
	Moved      map[string]string `json:"moved,omitempty"`
}

type scanGroup struct {
	Representative string   `json:"representative"`
	Paths          []string `json:"paths"`
	Keep           string   `json:"keep,omitempty"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "Find groups of similar images in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyScanFlags(cmd, cfg, flags); err != nil {
				return err
			}
			return runScan(cmd, cfg, flags, args[0])
		},
	}

	cmd.Flags().BoolVar(&flags.noRecursive, "no-recursive", false, "Only scan the folder itself, not its subfolders")
	cmd.Flags().IntVarP(&flags.strictness, "strictness", "s", engine.DefaultStrictness, "Strictness 0 (loosest) to 20 (exact matches only)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Hashing workers (0 = automatic)")
	cmd.Flags().StringVar(&flags.algorithm, "algorithm", "", "Hash algorithm: phash, ahash, dhash or opencv")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "Write the run to this SQLite database")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&flags.keepBest, "keep-best", false, "Mark the best copy of each group")
	cmd.Flags().StringVar(&flags.moveTo, "move-to", "", "Move every copy except the best into this folder")
	cmd.Flags().BoolVar(&flags.trash, "trash", false, "Send every copy except the best to the desktop trash")
	cmd.MarkFlagsMutuallyExclusive("move-to", "trash")

	return cmd
}

// applyScanFlags lets explicitly set flags override the configuration file.
// Overrides go through the same normalization as file values.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config, flags *scanFlags) error {
	changed := cmd.Flags().Changed
	if changed("no-recursive") {
		cfg.Scan.Recursive = !flags.noRecursive
	}
	if changed("strictness") {
		cfg.Scan.Strictness = flags.strictness
	}
	if changed("workers") {
		cfg.Scan.Workers = flags.workers
	}
	if changed("algorithm") {
		cfg.Hash.Algorithm = flags.algorithm
	}
	if changed("report") {
		cfg.Report.Path = flags.reportPath
	}
	return cfg.Normalize()
}

func runScan(cmd *cobra.Command, cfg *config.Config, flags *scanFlags, folder string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	root, err := utils.ExpandPath(folder)
	if err != nil {
		return err
	}
	var moveTo, trashDir string
	if flags.moveTo != "" {
		if moveTo, err = utils.ExpandPath(flags.moveTo); err != nil {
			return err
		}
	}
	if flags.trash {
		if trashDir, err = curate.DefaultTrashDir(); err != nil {
			return err
		}
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	if cfg.Lock.Enabled {
		unlock, err := lockRoot(root)
		if err != nil {
			return err
		}
		defer unlock()
	}

	hasher, err := newHasher(cfg.Hash.Algorithm)
	if err != nil {
		return err
	}
	workers := cfg.Scan.Workers
	if workers == 0 {
		workers = signalhandler.GetOptimalProcs()
	}
	fsys := afero.NewOsFs()
	eng := engine.New(engine.Options{
		Fs:             fsys,
		Hasher:         hasher,
		Logger:         logger,
		ScanWorkers:    workers,
		CompareWorkers: cfg.Cluster.Workers,
	})

	sigCtx, stop := signalhandler.SetupHandler(cmd.Context())
	defer stop()

	run, err := eng.Start(sigCtx, engine.Config{
		Root:       root,
		Recursive:  cfg.Scan.Recursive,
		Strictness: cfg.Scan.Strictness,
	})
	if err != nil {
		return err
	}

	reporter := newProgressReporter(cmd.ErrOrStderr(), logger)
	for percent := range run.Progress() {
		reporter.update(percent)
	}
	reporter.finish()
	outcome := run.Wait()

	var selections []curate.Selection
	if outcome.Status == engine.StatusSuccess {
		selections = curate.SelectAll(fsys, outcome.Groups)
	}

	if cfg.Report.Path != "" {
		// the signal context may already be cancelled; the report is still written
		report := buildReport(run, hasher.Name(), outcome, selections)
		if err := storeReport(context.WithoutCancel(sigCtx), cfg.Report.Path, report); err != nil {
			logger.Error("run report not written", "path", cfg.Report.Path, "error", err)
		}
	}

	switch outcome.Status {
	case engine.StatusCancelled:
		fmt.Fprintln(cmd.ErrOrStderr(), "Search cancelled")
		return &exitCodeError{code: exitCancelled}
	case engine.StatusFailed:
		return outcome.Err
	}

	var moved map[string]string
	if moveTo != "" || trashDir != "" {
		var remove []string
		for _, sel := range selections {
			remove = append(remove, sel.Remove...)
		}
		var moveErr error
		if trashDir != "" {
			moved, moveErr = curate.Trash(fsys, remove, trashDir)
		} else {
			moved, moveErr = curate.Move(fsys, remove, moveTo)
		}
		if moveErr != nil {
			logger.Warn("some files were not moved", "error", moveErr)
		}
	}

	showKeep := flags.keepBest || moveTo != "" || trashDir != ""
	if flags.jsonOutput {
		return writeJSON(cmd, buildScanResult(run, outcome, selections, showKeep, moved))
	}
	printScanResult(cmd.OutOrStdout(), outcome, selections, showKeep, moved)
	return nil
}

func lockRoot(root string) (func(), error) {
	lockPath, err := utils.LockPath(root)
	if err != nil {
		return nil, err
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, errors.New("another snappurge scan of this folder is already running")
	}
	return func() { _ = lock.Unlock() }, nil
}

func buildScanResult(run *engine.Run, outcome engine.Outcome, selections []curate.Selection, showKeep bool, moved map[string]string) scanResult {
	cfg := run.Config()
	res := scanResult{
		RunID:      run.ID().String(),
		Status:     outcome.Status.String(),
		Root:       cfg.Root,
		Strictness: cfg.Strictness,
		Total:      outcome.Stats.Total,
		Hashed:     outcome.Stats.Hashed,
		Failed:     outcome.Stats.Failed,
		Summary:    curate.Summarize(outcome.Groups, selections),
		Groups:     make([]scanGroup, 0, len(outcome.Groups)),
		Moved:      moved,
	}
	for i, g := range outcome.Groups {
		group := scanGroup{Representative: g.Representative.String(), Paths: g.Paths}
		if showKeep && i < len(selections) {
			group.Keep = selections[i].Keep
		}
		res.Groups = append(res.Groups, group)
	}
	return res
}

func printScanResult(out io.Writer, outcome engine.Outcome, selections []curate.Selection, showKeep bool, moved map[string]string) {
	stats := outcome.Stats
	fmt.Fprintf(out, "%s: hashed %s of %s images", titleCase(outcome.Status.String()), formatCount(stats.Hashed), formatCount(stats.Total))
	if stats.Failed > 0 {
		fmt.Fprintf(out, " (%s could not be read)", formatCount(stats.Failed))
	}
	fmt.Fprintln(out)

	if len(outcome.Groups) == 0 {
		fmt.Fprintln(out, "No duplicates found")
		return
	}

	fmt.Fprintln(out, groupsTable(outcome.Groups, selections, showKeep))

	summary := curate.Summarize(outcome.Groups, selections)
	fmt.Fprintf(out, "%s groups, %s images, %s duplicates, %s reclaimable\n",
		formatCount(summary.Groups), formatCount(summary.Images), formatCount(summary.Duplicates), formatBytes(summary.ReclaimableBytes))
	if moved != nil {
		fmt.Fprintf(out, "Moved %s files\n", formatCount(len(moved)))
	}
}
