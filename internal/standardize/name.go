package standardize

import "strings"

// BuildName joins the non-empty name parts with " | "
func BuildName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}

// Parts are the components of a standardized campaign name
type Parts struct {
	Brand     string
	Format    string
	Target    string
	DateRange string
	Bid       string
	Goal      string
}

// Name renders the standardized name in brand, format, target, period,
// bid, goal order.
func (p Parts) Name() string {
	return BuildName(p.Brand, p.Format, p.Target, p.DateRange, p.Bid, p.Goal)
}
