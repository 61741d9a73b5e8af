package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"bcryptcrack/internal/models"
	"bcryptcrack/internal/oracle"
	"bcryptcrack/internal/shadow"
)

var (
	header  = color.New(color.FgCyan, color.Bold)
	found   = color.New(color.FgGreen)
	missed  = color.New(color.FgRed)
	failed  = color.New(color.FgYellow)
	divider = strings.Repeat("-", 70)
)

type GroupCount struct {
	Cost    int
	Total   int
	Cracked int
	Failed  int
}

// CountByCost tallies results per cost factor, cheapest first.
func CountByCost(results []models.CrackResult) []GroupCount {
	byCost := map[int]*GroupCount{}
	for _, r := range results {
		g, ok := byCost[r.Cost]
		if !ok {
			g = &GroupCount{Cost: r.Cost}
			byCost[r.Cost] = g
		}
		g.Total++
		switch {
		case r.Found():
			g.Cracked++
		case r.Status == models.StatusFailed:
			g.Failed++
		}
	}
	out := make([]GroupCount, 0, len(byCost))
	for _, g := range byCost {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out
}

// WriteSummary prints the per-user table, per-group counts and total time.
func WriteSummary(w io.Writer, results []models.CrackResult, total time.Duration) {
	header.Fprintln(w, "CRACKING SUMMARY")
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "%-12s %-20s %-12s %-10s %s\n", "User", "Password", "Time (s)", "Attempts", "Workfactor")
	fmt.Fprintln(w, divider)

	sorted := append([]models.CrackResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Cost != sorted[j].Cost {
			return sorted[i].Cost < sorted[j].Cost
		}
		return sorted[i].User < sorted[j].User
	})
	for _, r := range sorted {
		line := fmt.Sprintf("%-12s %-20s %-12.2f %-10d %d", r.User, displayPassword(r), r.Elapsed.Seconds(), r.Attempts, r.Cost)
		switch {
		case r.Found():
			found.Fprintln(w, line)
		case r.Status == models.StatusFailed:
			failed.Fprintln(w, line)
		default:
			missed.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w, divider)

	cracked := 0
	for _, g := range CountByCost(results) {
		cracked += g.Cracked
		fmt.Fprintf(w, "Workfactor %d: %d/%d cracked", g.Cost, g.Cracked, g.Total)
		if g.Failed > 0 {
			fmt.Fprintf(w, ", %d indeterminate", g.Failed)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Cracked: %d/%d passwords\n", cracked, len(results))
	fmt.Fprintf(w, "Total time: %.2f seconds (%.2f minutes, %.2f hours)\n", total.Seconds(), total.Minutes(), total.Hours())
}

// WriteEstimate prints the worst-case time to exhaust the corpus for one
// user of each cost group, spread over workers.
func WriteEstimate(w io.Writer, groups []shadow.Group, corpusLen, workers int) {
	if workers < 1 {
		workers = 1
	}
	header.Fprintln(w, "Estimated cracking times (worst case per user)")
	fmt.Fprintln(w, divider)
	for _, g := range groups {
		est := oracle.Estimate(g.Cost, corpusLen) / time.Duration(workers)
		fmt.Fprintf(w, "  Workfactor %d: ~%.1f hours per user (%d users, %s per hash)\n",
			g.Cost, est.Hours(), len(g.Records), oracle.PerHash(g.Cost))
	}
	fmt.Fprintln(w, divider)
}

// WriteCSV writes the final results table with a trailing total row.
func WriteCSV(w io.Writer, results []models.CrackResult, total time.Duration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"User", "Password", "Time_Seconds", "Attempts", "Workfactor"}); err != nil {
		return err
	}
	for _, r := range results {
		pw := "NOT_FOUND"
		if r.Password != nil {
			pw = *r.Password
		} else if r.Status == models.StatusFailed {
			pw = "FAILED"
		}
		if err := cw.Write([]string{r.User, pw, secs(r.Elapsed), strconv.Itoa(r.Attempts), strconv.Itoa(r.Cost)}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal_Time,%s\n", secs(total))
	return err
}

func WriteCSVFile(path string, results []models.CrackResult, total time.Duration) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, results, total); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func displayPassword(r models.CrackResult) string {
	switch {
	case r.Password != nil:
		return *r.Password
	case r.Status == models.StatusFailed:
		return "INDETERMINATE"
	default:
		return "NOT FOUND"
	}
}

func secs(d time.Duration) string { return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) }
