package transform

import "strings"

// DefaultLinkBase is the booking page prefix used when none is configured.
const DefaultLinkBase = "http://uat.center.cruises/cruise-"

// Link returns the booking page of one departure, or "" when either part is missing.
func Link(base, rangeID, code string) string {
	rangeID = strings.TrimSpace(rangeID)
	code = strings.TrimSpace(code)
	if rangeID == "" || code == "" {
		return ""
	}
	return base + rangeID + "-" + code
}

// Links returns one booking link per range id, in order.
func Links(base string, rangeIDs []string, code string) []string {
	links := make([]string, 0, len(rangeIDs))
	for _, id := range rangeIDs {
		if link := Link(base, id, code); link != "" {
			links = append(links, link)
		}
	}
	return links
}

// FirstLink builds the link of the first non-empty token of a ", " joined
// range list.
func FirstLink(base, ranges, code string) string {
	for token := range strings.SplitSeq(ranges, ",") {
		if token = strings.TrimSpace(token); token != "" {
			return Link(base, token, code)
		}
	}
	return ""
}
