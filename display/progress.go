// Package display renders CLI output for the router: a live progress
// bar while a batch is in flight, and colorized printing of a single
// routing decision.
package display

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/arohandas/introute/models"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
	backendColor = color.New(color.FgCyan, color.Bold)
)

// NewBatchProgressBar builds a progress bar for route_batch, ticked
// once per completed query.
func NewBatchProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("routing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionOnCompletion(func() {
			successColor.Println(" done")
		}),
		progressbar.OptionSpinnerType(14),
	)
}

// PrintDecision prints one routing decision, colorizing the backend
// and dimming cache-hit/timing detail.
func PrintDecision(d models.RoutingDecision) {
	backendColor.Printf("%s", d.Backend)
	fmt.Printf("  (%s, confidence %.2f)\n", d.Classification.Category, d.Classification.Confidence)
	if d.CacheHit {
		dimColor.Printf("  cache hit (%s tier)\n", d.CacheTier)
	}
	dimColor.Printf("  %s, %s\n", d.Reason, d.ProcessingTime)
}

// PrintError prints a routing failure in red.
func PrintError(query string, err error) {
	errorColor.Printf("✗ %s: %v\n", query, err)
}
