package report

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/nadmax/lockstats/internal/lockhistory"
	"github.com/nadmax/lockstats/internal/table"
	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

const (
	minuteSecs = 60
	hourSecs   = 60 * minuteSecs
	daySecs    = 24 * hourSecs
	yearSecs   = 365 * daySecs
)

// FormatTime renders a number of seconds as its two most significant units,
// e.g. "2 mins 3 secs". Zero renders as "now".
func FormatTime(totalSecs float64) string {
	totalSecs = math.Abs(totalSecs)

	years := math.Floor(totalSecs / yearSecs)
	remainder := totalSecs - years*yearSecs
	days := math.Floor(remainder / daySecs)
	remainder -= days * daySecs
	hours := math.Floor(remainder / hourSecs)
	remainder -= hours * hourSecs
	mins := math.Floor(remainder / minuteSecs)
	secs := math.Round((remainder-mins*minuteSecs)*100) / 100

	oyears := unit(years, "year", "years")
	odays := unit(days, "day", "days")
	ohours := unit(hours, "hour", "hours")
	omins := unit(mins, "min", "mins")
	osecs := unit(secs, "sec", "secs")

	switch {
	case years > 0:
		return strings.TrimSpace(oyears + " " + odays)
	case days > 0:
		return strings.TrimSpace(odays + " " + ohours)
	case hours > 0:
		return strings.TrimSpace(ohours + " " + omins)
	case mins > 0:
		return strings.TrimSpace(omins + " " + osecs)
	case secs > 0:
		return osecs
	default:
		return "now"
	}
}

func unit(value float64, singular, plural string) string {
	if value == 0 {
		return ""
	}

	label := plural
	if value == 1 {
		label = singular
	}

	return strconv.FormatFloat(value, 'f', -1, 64) + " " + label
}

// formatDuration averages duration over lockcount when present. Download mode
// gets four decimals, display mode a readable duration.
func formatDuration(row table.Row, downloading bool) string {
	duration, ok := row.Float("duration")
	if lockCount, hasCount := row.Float("lockcount"); ok && hasCount {
		duration = lockhistory.Record{Duration: duration, LockCount: int(lockCount)}.AverageDuration()
	}

	return formatSeconds(duration, ok, downloading)
}

func formatSeconds(seconds float64, ok, downloading bool) string {
	if downloading {
		if !ok {
			return ""
		}
		return strconv.FormatFloat(seconds, 'f', 4, 64)
	}

	return FormatTime(seconds)
}

// DetailURL links to the per-task detail report sorted by duration.
func DetailURL(taskID string) string {
	q := url.Values{}
	q.Set("task", taskID)
	q.Set("tsort", "duration")

	return DetailPath + "?" + q.Encode()
}

// FriendlyName turns `tool_lockstats\task\cleanup_task` into "Cleanup Task".
func FriendlyName(className string) string {
	parts := strings.Split(className, `\`)
	return titleWords(strings.ReplaceAll(parts[len(parts)-1], "_", " "))
}

// titleWords upper-cases the first letter of every word and leaves the rest
// untouched.
func titleWords(s string) string {
	runes := []rune(s)
	start := true
	for i, r := range runes {
		if unicode.IsSpace(r) {
			start = true
			continue
		}
		if start {
			runes[i] = unicode.ToUpper(r)
			start = false
		}
	}

	return string(runes)
}

// ClassLink renders the task link followed by the raw class name.
func ClassLink(taskID, className string) string {
	var b strings.Builder
	_ = html.A(html.Href(DetailURL(taskID)), gomponents.Text(FriendlyName(className))).Render(&b)
	b.WriteString("\n")
	_ = html.Span(html.Class("task-class"), gomponents.Text(className)).Render(&b)

	return b.String()
}
