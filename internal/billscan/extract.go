// Package billscan turns raw OCR output from a scanned bill into structured
// expense candidates. Recognition itself happens upstream; this package only
// sees the recognized text, concatenated across pages in scan order.
package billscan

import (
	"regexp"
	"strings"

	"piggyflow/internal/core"
)

// Item is one extracted line: the item name and its price.
type Item struct {
	Name  string
	Price core.Money
}

var (
	// A price is a plain decimal with at most two fraction digits,
	// standing alone as a whitespace-separated token ("45.00", "30.5", "20").
	priceToken = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

	// Item names are runs of letters and inner spaces.
	letterRun = regexp.MustCompile(`[A-Za-z][A-Za-z ]*[A-Za-z]|[A-Za-z]`)
)

// Extract parses bill text into ordered (name, price) pairs, one per
// matching line, top to bottom.
//
// A line matches when it holds a letter run followed (not necessarily
// adjacently) by a standalone price token. When several numbers share a
// line the last one is the price — bills put quantity before amount. Lines
// that don't match are dropped silently; garbled OCR never aborts the rest
// of the scan, and no input ever produces an error. Empty input yields an
// empty slice.
func Extract(raw string) []Item {
	items := make([]Item, 0)
	for _, line := range strings.Split(raw, "\n") {
		if item, ok := extractLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

func extractLine(line string) (Item, bool) {
	fields := strings.Fields(line)

	// Trailing price token wins.
	price := -1
	for i := len(fields) - 1; i >= 0; i-- {
		if priceToken.MatchString(fields[i]) {
			price = i
			break
		}
	}
	if price <= 0 {
		// No price, or nothing before it to name the item.
		return Item{}, false
	}

	name := longestLetterRun(strings.Join(fields[:price], " "))
	if name == "" {
		return Item{}, false
	}

	cents, err := core.ParseAmount(fields[price])
	if err != nil {
		return Item{}, false
	}
	return Item{Name: name, Price: cents}, true
}

// longestLetterRun picks the longest run of letters (first on ties) from
// the text preceding the price, skipping OCR noise like dashes or digits.
func longestLetterRun(s string) string {
	best := ""
	for _, run := range letterRun.FindAllString(s, -1) {
		run = strings.TrimSpace(run)
		if len(run) > len(best) {
			best = run
		}
	}
	return best
}
