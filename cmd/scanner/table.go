package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"ecospectre-be/pkg/scan"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

var (
	okText    = color.New(color.FgGreen).SprintFunc()
	warnText  = color.New(color.FgYellow).SprintFunc()
	errText   = color.New(color.FgRed).SprintFunc()
	boldText  = color.New(color.Bold).SprintFunc()
	faintText = color.New(color.Faint).SprintFunc()
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func scoreText(score float64) string {
	s := fmt.Sprintf("%.0f", score)
	switch {
	case score >= 70:
		return okText(s)
	case score >= 40:
		return warnText(s)
	default:
		return errText(s)
	}
}

func recordRows(records []scan.Record, withPending bool) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			r.ID,
			r.Time().Local().Format(time.DateTime),
			scoreText(r.Score.Score),
			string(r.Action),
			r.Context.PackagingType,
			truncate(strings.Join(r.Context.DetectedLabels, ", "), 32),
		}
		if withPending {
			state := okText("synced")
			if r.Pending {
				state = warnText("pending")
			}
			row = append(row, state)
		}
		rows = append(rows, row)
	}
	return rows
}

func recordTable(records []scan.Record, withPending bool) string {
	headers := []string{"ID", "When", "Score", "Action", "Packaging", "Labels"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight}
	if withPending {
		headers = append(headers, "Sync")
	}
	return renderTable(headers, recordRows(records, withPending), aligns)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func isTerminal(file *os.File) bool {
	if file == nil {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
