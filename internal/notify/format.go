package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// maxListed caps the routes rendered into one message.
const maxListed = 10

// OpportunityAlert renders the opportunities at or above minPct. ok is false
// when none qualify.
func OpportunityAlert(r domain.ScanReport, minPct float64) (title, message string, ok bool) {
	var hits []domain.ArbitrageOpportunity
	for _, o := range r.Opportunities {
		if o.ProfitAfterFeesPct >= minPct {
			hits = append(hits, o)
		}
	}
	if len(hits) == 0 {
		return "", "", false
	}

	var b strings.Builder
	for i, o := range hits {
		if i == maxListed {
			fmt.Fprintf(&b, "... and %d more\n", len(hits)-maxListed)
			break
		}
		fmt.Fprintf(&b, "%s  %+.3f%% (gross %+.3f%%)\n", o.Label(), o.ProfitAfterFeesPct, o.ProfitBeforeFeesPct)
	}
	title = fmt.Sprintf("%d triangular opportunit%s ≥ %.2f%%", len(hits), plural(len(hits), "y", "ies"), minPct)
	return title, strings.TrimRight(b.String(), "\n"), true
}

// FailureAlert renders the exchanges that errored. ok is false when all
// exchanges succeeded.
func FailureAlert(r domain.ScanReport) (title, message string, ok bool) {
	var lines []string
	for _, ex := range r.Exchanges {
		if ex.Error != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", ex.Exchange, ex.Error))
		}
	}
	if len(lines) == 0 {
		return "", "", false
	}
	title = fmt.Sprintf("Scan %s: %d exchange%s failed", r.ID, len(lines), plural(len(lines), "", "s"))
	return title, strings.Join(lines, "\n"), true
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
