package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/wonny/sectorcast/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

var jsonOutput bool

func printHeader(title string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	fmt.Println("───────────────────────────────────────────────────────────")
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return w
}

func printFailures(failures []contracts.SectorFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Printf("\n⚠️  %d sector(s) failed:\n", len(failures))
	for _, f := range failures {
		fmt.Printf("   %-20s %s\n", f.Sector, f.Reason)
	}
}

func printPredictions(batch *contracts.PredictionBatch) {
	w := newTable("RANK", "SECTOR", "PREDICTED %", "CONFIDENCE", "MODEL")
	for i, p := range batch.Predictions {
		fmt.Fprintf(w, "%d\t%s\t%+.3f\t%.2f\t%s\n", i+1, p.Sector, p.PredictedChange, p.Confidence, p.ModelKind)
	}
	w.Flush()
	printFailures(batch.Failures)
}

func printTraining(batch *contracts.TrainingBatch) {
	w := newTable("SECTOR", "BEST MODEL", "R2", "MAE", "DIRECTION", "TRAIN/TEST")
	for _, r := range batch.Results {
		best, _ := r.Best()
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%.2f\t%d/%d\n",
			r.Sector, r.BestModel, best.R2, best.MAE, best.DirectionAccuracy, r.TrainingSamples, r.TestSamples)
	}
	w.Flush()
	printFailures(batch.Failures)
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
