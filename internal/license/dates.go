package license

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "idmeapi/internal/errors"
)

// Date formats accepted from the sheet, tried in order. The sheet is shared
// and manually edited, so expiry cells show up in whatever convention the
// editor's locale produced.
var (
	reSlashDMY = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	reISODate  = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	reDashMDY  = regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`)
)

// fallbackLayouts are tried last, after the explicit patterns.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02/01/2006 15:04:05",
}

// ParseDateValue normalizes a raw cell value into a calendar date (midnight,
// local time). Native time values and numeric epoch-millisecond timestamps
// are accepted directly; everything else goes through ParseDate.
func ParseDateValue(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return Midnight(x), nil
	case float64:
		return Midnight(time.UnixMilli(int64(x))), nil
	case int64:
		return Midnight(time.UnixMilli(x)), nil
	case int:
		return Midnight(time.UnixMilli(int64(x))), nil
	case string:
		return ParseDate(x)
	default:
		return time.Time{}, apperrors.ErrInvalidDateFormat
	}
}

// ParseDate parses a textual date in any of the recognized forms and returns
// it truncated to midnight. First matching rule wins:
//
//	1. numeric string        -> milliseconds since epoch
//	2. DD/MM/YYYY
//	3. YYYY-MM-DD
//	4. MM-DD-YYYY
//	5. fallback layouts
//
// Returns apperrors.ErrInvalidDateFormat when nothing matches.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperrors.ErrInvalidDateFormat
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Midnight(time.UnixMilli(ms)), nil
	}

	switch {
	case reSlashDMY.MatchString(s):
		parts := strings.Split(s, "/")
		return calendarDate(parts[2], parts[1], parts[0])
	case reISODate.MatchString(s):
		parts := strings.Split(s, "-")
		return calendarDate(parts[0], parts[1], parts[2])
	case reDashMDY.MatchString(s):
		parts := strings.Split(s, "-")
		return calendarDate(parts[2], parts[0], parts[1])
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Midnight(t), nil
		}
	}

	return time.Time{}, apperrors.ErrInvalidDateFormat
}

// calendarDate builds a midnight time from year/month/day strings, rejecting
// values that do not name a real calendar date (e.g. 31/02/2024).
func calendarDate(ys, ms, ds string) (time.Time, error) {
	year, _ := strconv.Atoi(ys)
	month, _ := strconv.Atoi(ms)
	day, _ := strconv.Atoi(ds)

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, apperrors.ErrInvalidDateFormat
	}
	return t, nil
}

// Midnight truncates a time to 00:00:00 in its own location. All expiry
// comparisons are date-only.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole days from a to b, both taken at midnight.
// Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Midnight(b).Sub(Midnight(a)).Hours() / 24)
}

// FormatDate renders the canonical display form DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatDateTime renders the timestamp form used in device last-used cells.
func FormatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04:05")
}

// NormalizeStatus trims and uppercases a raw status cell. Only the normalized
// value "ACTIVE" grants validity; "active ", " Active" and friends were all
// observed in the sheet.
func NormalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
