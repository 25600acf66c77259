package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	service "github.com/okian/estimatb/internal/app"
)

// WriteSummary prints the validation messages, the selected fit and its
// interpretation.
func WriteSummary(w io.Writer, a *service.Analysis) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, m := range a.Messages {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Severity, m.Kind, m.Text)
	}
	if len(a.Messages) > 0 {
		fmt.Fprintln(tw)
	}

	fmt.Fprintf(tw, "run\t%s\n", a.RunID)
	if a.Fatal {
		fmt.Fprintf(tw, "status\trejected\n")
		return tw.Flush()
	}
	fmt.Fprintf(tw, "days\t%d (%d with leaf counts)\n", a.Days, a.Measurements)

	if res := a.Results; res != nil {
		fmt.Fprintf(tw, "grid\t%g..%g step %g (%d candidates, %d unusable)\n",
			res.Range.Min, res.Range.Max, res.Range.Step, len(res.Rows), res.Unusable())
		fmt.Fprintf(tw, "score\t%s\n", res.Mode)
		if res.SkipRows > 0 {
			fmt.Fprintf(tw, "skipped rows\t%d\n", res.SkipRows)
		}
	}

	best := a.Best()
	if best == nil {
		fmt.Fprintf(tw, "status\tno usable fit\n")
		return tw.Flush()
	}
	fmt.Fprintf(tw, "best Tb\t%g °C\n", best.Tb)
	fmt.Fprintf(tw, "MSE\t%.6g\n", best.MSE)
	fmt.Fprintf(tw, "R²\t%.4f\n", best.R2)
	fmt.Fprintf(tw, "slope\t%.6f leaves per °C day\n", best.Slope)
	fmt.Fprintf(tw, "intercept\t%.4f\n", best.Intercept)
	fmt.Fprintf(tw, "sample\t%d points\n", best.SampleSize)

	if a.Assessment != nil {
		fmt.Fprintln(tw)
		for _, s := range a.Assessment.Sentences {
			fmt.Fprintln(tw, s)
		}
	}
	return tw.Flush()
}
