package summary

import (
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/rt0111/onayformukontrol/internal/models"
)

var monthNames = map[string]time.Month{
	"ocak": time.January, "subat": time.February, "mart": time.March,
	"nisan": time.April, "mayis": time.May, "haziran": time.June,
	"temmuz": time.July, "agustos": time.August, "eylul": time.September,
	"ekim": time.October, "kasim": time.November, "aralik": time.December,

	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var (
	numericDate = regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})[./](\d{4})\b`)
	isoDate     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	namedDate   = regexp.MustCompile(`\b(\d{1,2})\s+(ocak|subat|mart|nisan|mayis|haziran|temmuz|agustos|eylul|ekim|kasim|aralik|january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`)
)

type dateHit struct {
	start, end int
	date       time.Time
}

// validDate builds the date and rejects overflow such as 31.02
func validDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}

func lineDates(text string) []dateHit {
	var hits []dateHit

	for _, m := range numericDate.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := validDate(year, month, day); ok {
			hits = append(hits, dateHit{m[0], m[1], d})
		}
	}
	for _, m := range isoDate.FindAllStringSubmatchIndex(text, -1) {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := validDate(year, month, day); ok {
			hits = append(hits, dateHit{m[0], m[1], d})
		}
	}
	for _, m := range namedDate.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month := monthNames[text[m[4]:m[5]]]
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := validDate(year, int(month), day); ok {
			hits = append(hits, dateHit{m[0], m[1], d})
		}
	}

	slices.SortStableFunc(hits, func(a, b dateHit) int { return a.start - b.start })
	return hits
}

// extractDates lists every date in the text in reading order
func extractDates(doc *document) models.Field[[]models.KeyDate] {
	var dates []models.KeyDate

	for _, l := range doc.lines {
		for _, h := range lineDates(l.folded.Text) {
			dates = append(dates, models.KeyDate{
				Text: l.folded.Source(h.start, h.end),
				Date: h.date.Format(time.DateOnly),
				Line: l.number,
			})
		}
	}

	if len(dates) == 0 {
		return models.NotFound[[]models.KeyDate]()
	}
	return models.Found(dates, "dates")
}
