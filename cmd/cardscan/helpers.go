package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// parsePositiveIDs converts command arguments into scan identifiers.
func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid scan id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// newProgressBar builds a stderr progress bar. A negative total renders a
// spinner with a running count instead of a bounded bar.
func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// clearProgressLine erases the bar so summaries start on a clean line.
func clearProgressLine() {
	fmt.Fprint(os.Stderr, "\r\033[K")
}
