package nutrition

import (
	"regexp"
	"strconv"
)

var digitRun = regexp.MustCompile(`\d+`)

// ExtractCalories pulls the first contiguous run of decimal digits out of
// free-form estimator output. ok is false when the text contains no digit
// run, or when the run does not fit in an int; both mean the response is
// unparseable and no meal record should be written.
func ExtractCalories(text string) (calories int, ok bool) {
	run := digitRun.FindString(text)
	if run == "" {
		return 0, false
	}

	n, err := strconv.Atoi(run)
	if err != nil {
		return 0, false
	}
	return n, true
}
