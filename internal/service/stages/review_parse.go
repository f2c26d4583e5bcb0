package stages

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

var (
	scorePattern     = regexp.MustCompile(`SCORE:\s*(\d+(?:\.\d+)?)/100`)
	itemStartPattern = regexp.MustCompile(`[1-3]\.`)
	itemEndPattern   = regexp.MustCompile(`\n[2-4]\.|RECOMMENDATION:`)
)

const feedbackMarker = "FEEDBACK:"

// ErrEmptyReport is returned by ParseReview for a blank report.
var ErrEmptyReport = errors.New("empty review report")

// Fallback comments written when a review cannot be used.
var (
	ReviewFailedComments = [core.ReviewCommentCount]string{"Review failed", "Review failed", "Review failed"}
	ParseErrorComments   = [core.ReviewCommentCount]string{"Parsing error occurred", "Unable to extract feedback", "Review incomplete"}
)

// ParseReview extracts the score and exactly three feedback items from an
// evaluation report. A missing score is 0; missing items are padded with
// core.NoFeedbackSentinel.
func ParseReview(report string) (float64, [core.ReviewCommentCount]string, error) {
	var feedback [core.ReviewCommentCount]string
	if strings.TrimSpace(report) == "" {
		return 0, ParseErrorComments, ErrEmptyReport
	}

	score := 0.0
	if m := scorePattern.FindStringSubmatch(report); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, ParseErrorComments, err
		}
		score = core.ClampScore(v)
	}

	items := feedbackItems(report)
	for i := range feedback {
		if i < len(items) {
			feedback[i] = items[i]
		} else {
			feedback[i] = core.NoFeedbackSentinel
		}
	}
	return score, feedback, nil
}

// feedbackItems scans the text after the last FEEDBACK: marker. An item
// starts at a digit 1-3 followed by a period and runs until a newline
// followed by 2-4 and a period, a RECOMMENDATION: marker, or the end.
// Terminators are not consumed, so a terminator can start the next item.
// Only the first three matches count, even when one of them is blank.
func feedbackItems(report string) []string {
	idx := strings.LastIndex(report, feedbackMarker)
	if idx < 0 {
		return nil
	}
	section := report[idx+len(feedbackMarker):]

	var items []string
	for n := 0; n < core.ReviewCommentCount; n++ {
		loc := itemStartPattern.FindStringIndex(section)
		if loc == nil {
			break
		}
		body := strings.TrimLeft(section[loc[1]:], " \t\r\n\f\v")
		if len(body) == 0 {
			break
		}
		// The item needs at least one character before any terminator.
		end := len(body)
		if m := itemEndPattern.FindStringIndex(body[1:]); m != nil {
			end = m[0] + 1
		}
		if cleaned := strings.TrimSpace(strings.ReplaceAll(body[:end], "\n", " ")); cleaned != "" {
			items = append(items, cleaned)
		}
		section = body[end:]
	}
	return items
}
