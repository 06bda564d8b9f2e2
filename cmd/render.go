package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/Another0Noob/romfilter/internal/catalog"
	"github.com/Another0Noob/romfilter/internal/collection"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progress draws a bar on terminals and stays silent elsewhere, where the
// log lines already report each step.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer, total int, description string) *progress {
	if total <= 0 || !isTerminal(w) {
		return &progress{}
	}
	return &progress{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *progress) step(done int, label string) {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.Describe(label)
	_ = p.bar.Set(done)
}

func (p *progress) finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}

func renderFetchSummary(w io.Writer, res *catalog.Result, lightCount int, full, light string) {
	rows := [][]string{
		{"Titles listed", strconv.Itoa(res.Listed)},
		{"Ignored (hacks, subsets)", strconv.Itoa(res.Ignored)},
		{"Retrieved", strconv.Itoa(len(res.Games))},
		{"Skipped", strconv.Itoa(len(res.Skipped))},
		{"Light catalog titles", strconv.Itoa(lightCount)},
	}
	fmt.Fprintln(w, renderTable([]string{"Catalog", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(w, "Full data:  %s\nLight data: %s\n", full, light)

	if len(res.Skipped) > 0 {
		skipped := make([][]string, 0, len(res.Skipped))
		for _, s := range res.Skipped {
			skipped = append(skipped, []string{strconv.Itoa(s.GameID), s.Title, s.Err.Error()})
		}
		fmt.Fprintln(w, renderTable([]string{"ID", "Skipped title", "Reason"}, skipped, []columnAlignment{alignRight}))
	}
}

func renderReport(w io.Writer, rep *collection.Report, outDir string) {
	rows := [][]string{
		{"Files scanned", strconv.Itoa(rep.Scanned)},
		{"Unreadable", strconv.Itoa(rep.Skipped)},
		{"Unknown checksum", strconv.Itoa(rep.Unknown)},
		{"Titles matched", strconv.Itoa(rep.Matched)},
		{"Files produced", strconv.Itoa(rep.Produced)},
		{"Files ignored", strconv.Itoa(rep.Ignored())},
		{"Bytes written", humanize.Bytes(uint64(rep.Bytes))},
		{"Catalog coverage", fmt.Sprintf("%d%% (%d/%d)", rep.Coverage(), rep.Produced, rep.TotalTitles)},
	}
	fmt.Fprintln(w, renderTable([]string{"Filter", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	if rep.Produced > 0 {
		fmt.Fprintf(w, "Filtered files are in %s\n", outDir)
	}

	if len(rep.Failures) > 0 {
		failed := make([][]string, 0, len(rep.Failures))
		for _, f := range rep.Failures {
			failed = append(failed, []string{f.Title, f.File, f.Err.Error()})
		}
		fmt.Fprintln(w, renderTable([]string{"Not produced", "Source", "Reason"}, failed, nil))
	}

	if len(rep.Missing) > 0 {
		fmt.Fprintf(w, "\n%d titles without a matching file:\n", len(rep.Missing))
		for _, title := range rep.Missing {
			fmt.Fprintf(w, "  - %s\n", title.Name)
		}
	}
}
