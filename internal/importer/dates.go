package importer

import (
	"strings"
	"time"
)

// dateLayouts are tried in order: yyyy-MM-dd, dd.MM.yyyy, dd.MM.yy, dd/MM/yyyy.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02.01.06",
	"02/01/2006",
}

// parseDate parses s with the first matching layout. Results are midnight UTC.
// The zero time is rejected; the ledger treats it as a missing date.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, !t.IsZero()
		}
	}
	return time.Time{}, false
}
