package cmd

import (
	"context"
	"fmt"

	"snappurge/curate"
	"snappurge/database"
	"snappurge/engine"
	"snappurge/types"
)

// buildReport converts a finished run into its exported form. selections may
// be nil or must line up with outcome.Groups.
func buildReport(run *engine.Run, algorithm string, outcome engine.Outcome, selections []curate.Selection) database.RunReport {
	cfg := run.Config()
	sizes := recordSizes(outcome.Records)

	report := database.RunReport{
		ID:         run.ID().String(),
		Root:       cfg.Root,
		Recursive:  cfg.Recursive,
		Strictness: cfg.Strictness,
		Algorithm:  algorithm,
		Status:     outcome.Status.String(),
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
		Total:      outcome.Stats.Total,
		Hashed:     outcome.Stats.Hashed,
		Failed:     outcome.Stats.Failed,
	}
	for i, g := range outcome.Groups {
		keep := ""
		if i < len(selections) {
			keep = selections[i].Keep
		}
		group := database.GroupReport{Representative: g.Representative.String()}
		for _, p := range g.Paths {
			group.Files = append(group.Files, database.FileReport{Path: p, Size: sizes[p], Keep: p == keep})
		}
		report.Groups = append(report.Groups, group)
	}
	return report
}

func recordSizes(records []types.ImageRecord) map[string]int64 {
	sizes := make(map[string]int64, len(records))
	for _, r := range records {
		sizes[r.Path] = r.Size
	}
	return sizes
}

func storeReport(ctx context.Context, path string, report database.RunReport) error {
	db, err := database.InitDatabase(path)
	if err != nil {
		return fmt.Errorf("open report %s: %w", path, err)
	}
	defer db.Close()

	if err := database.StoreRun(ctx, db, report); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	return nil
}
