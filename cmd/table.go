package cmd

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"snappurge/curate"
	"snappurge/engine"
	"snappurge/types"
)

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

// groupsTable prints one row per path. The group number appears on the first
// row of each group and groups are divided by a separator line.
func groupsTable(groups []types.SimilarityGroup, selections []curate.Selection, showKeep bool) string {
	tw := newTableWriter()
	header := table.Row{"Group", "Path"}
	if showKeep {
		header = append(header, "Keep")
	}
	tw.AppendHeader(header)

	for i, g := range groups {
		if i > 0 {
			tw.AppendSeparator()
		}
		for j, path := range g.Paths {
			label := ""
			if j == 0 {
				label = strconv.Itoa(i + 1)
			}
			row := table.Row{label, path}
			if showKeep {
				row = append(row, keepMark(selections, i, path))
			}
			tw.AppendRow(row)
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Group", Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func keepMark(selections []curate.Selection, group int, path string) string {
	if group < len(selections) && selections[group].Keep == path {
		return "keep"
	}
	return ""
}

func levelsTable(levels []engine.Level) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Strictness", "Threshold", "Max distance", "Label"})
	for _, l := range levels {
		tw.AppendRow(table.Row{l.Strictness, l.Threshold, l.MaxDistance, l.Label})
	}
	// numbers right, label left
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
