package outwriter

import (
	"os"

	"github.com/huangsam/testhub/internal/contract"
	"golang.org/x/term"
)

// Widths reserved around the free-text column of each table.
const (
	summaryFixedWidth  = 60 // Team + Classes + Methods + Annotated + IDs + Coverage
	sessionsFixedWidth = 75 // ID + Status + Started + Repos + Methods + Annotated + Duration
)

// GetMaxTablePathWidth returns how wide a path or name column may be
// given the terminal width and the width taken by the other columns.
func GetMaxTablePathWidth(cfg *contract.Config, fixed int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Table borders, separators and padding
	available := termWidth - fixed - 20
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
