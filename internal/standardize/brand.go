package standardize

import (
	"strings"
)

type scope int

const (
	either scope = iota
	nameOnly
	accountOnly
)

type brandRule struct {
	token string
	where scope
	brand string
}

func (r brandRule) matches(name, account string) bool {
	switch r.where {
	case nameOnly:
		return strings.Contains(name, r.token)
	case accountOnly:
		return strings.Contains(account, r.token)
	default:
		return strings.Contains(name, r.token) || strings.Contains(account, r.token)
	}
}

// smartBrandRules apply to the raw master merge
var smartBrandRules = []brandRule{
	{"mcdonald", either, "McDonald's"},
	{"kaufland", either, "Kaufland"},
	{"nivea", either, "Nivea (Beiersdorf)"},
	{"eucerin", either, "Eucerin (Beiersdorf)"},
	{"philips", either, "Philips"},
	{"persil", either, "Persil (Henkel)"},
	{"perwoll", either, "Perwoll (Henkel)"},
	{"syoss", either, "Syoss (Henkel)"},
	{"weisser", either, "Weisser Riese (Henkel)"},
	{"somat", either, "Somat (Henkel)"},
	{"bref", either, "Bref (Henkel)"},
	{"gliss", either, "Gliss (Henkel)"},
	{"schauma", either, "Schauma (Henkel)"},
	{"palette", either, "Palette (Henkel)"},
	{"taft", either, "Taft (Henkel)"},
	{"got2b", either, "got2b (Henkel)"},
	{"porsche", accountOnly, "Porsche (Auto)"},
	{"nissan", either, "Nissan"},
	{"zott", either, "Zott"},
	{"jgl", accountOnly, "JGL (Pharma)"},
	{"energycom", either, "Energycom"},
	{"bosch", accountOnly, "Bosch"},
	{"finish", either, "Finish"},
	{"rio mare", either, "Rio Mare"},
	{"bison", accountOnly, "BISON"},
	{"borotalco", accountOnly, "Borotalco"},
	{"saponia", accountOnly, "Saponia"},
	{"ahmad", either, "Ahmad Tea"},
	{"barilla", accountOnly, "Barilla"},
	{"ceresit", either, "Ceresit"},
	{"uhu", accountOnly, "UHU"},
	{"reflustat", nameOnly, "Reflustat (JGL)"},
}

// accountBrandRules apply during standardization
var accountBrandRules = []brandRule{
	{"mcdonald", either, "McDonald's"},
	{"kaufland", either, "Kaufland"},
	{"nivea", either, "Nivea"},
	{"eucerin", either, "Eucerin"},
	{"philips", either, "Philips"},
	{"persil", either, "Persil"},
	{"perwoll", either, "Perwoll"},
	{"syoss", either, "Syoss"},
	{"weisser", either, "Weisser Riese"},
	{"somat", either, "Somat"},
	{"bref", either, "Bref"},
	{"porsche", accountOnly, "Porsche"},
	{"nissan", either, "Nissan"},
	{"zott", either, "Zott"},
	{"jgl", accountOnly, "JGL"},
	{"energycom", either, "Energycom"},
	{"bosch", accountOnly, "Bosch"},
	{"saponia", accountOnly, "Saponia"},
}

// nameBrandRules detect brands from the campaign name alone
var nameBrandRules = []brandRule{
	{"mcdonald", nameOnly, "McDonald's"},
	{"kaufland", nameOnly, "Kaufland"},
	{"nivea", nameOnly, "Nivea"},
	{"philips", nameOnly, "Philips"},
	{"henkel", nameOnly, "Henkel"},
	{"persil", nameOnly, "Persil (Henkel)"},
	{"perwoll", nameOnly, "Perwoll (Henkel)"},
	{"syoss", nameOnly, "Syoss (Henkel)"},
	{"weisser", nameOnly, "Weisser Riese (Henkel)"},
	{"somat", nameOnly, "Somat (Henkel)"},
	{"garnier", nameOnly, "Garnier"},
	{"omv", nameOnly, "OMV"},
	{"porsche", nameOnly, "Porsche"},
	{"beiersdorf", nameOnly, "Beiersdorf"},
	{"eucerin", nameOnly, "Eucerin (Beiersdorf)"},
	{"ahmad", nameOnly, "Ahmad Tea"},
	{"reflustat", nameOnly, "Reflustat"},
}

func firstMatch(rules []brandRule, campaign, account string) (string, bool) {
	name := strings.ToLower(campaign)
	acc := strings.ToLower(account)
	for _, r := range rules {
		if r.matches(name, acc) {
			return r.brand, true
		}
	}
	return "", false
}

// SmartBrand derives the brand of a campaign in the raw master dataset
func SmartBrand(campaign, account string) string {
	if b, ok := firstMatch(smartBrandRules, campaign, account); ok {
		return b
	}
	if account == "" {
		return "Unknown"
	}
	head, _, _ := strings.Cut(account, "_")
	return truncate(head, 30)
}

// AccountBrand derives the brand used in standardized campaign names
func AccountBrand(account, campaign string) string {
	if b, ok := firstMatch(accountBrandRules, campaign, account); ok {
		return b
	}
	if account == "" {
		return "Unknown"
	}
	head, _, _ := strings.Cut(account, "_")
	head, _, _ = strings.Cut(head, "//")
	return truncate(head, 20)
}

// NameBrand derives a brand from the campaign name when no account is
// available, falling back to the underscore structure of the name.
func NameBrand(campaign string) string {
	if campaign == "" {
		return "Unknown"
	}
	if b, ok := firstMatch(nameBrandRules, campaign, ""); ok {
		return b
	}
	parts := strings.Split(campaign, "_")
	switch {
	case len(parts) >= 4:
		return parts[3]
	case len(parts) >= 2:
		return parts[1]
	}
	if fields := strings.Fields(campaign); strings.Contains(campaign, " ") && len(fields) > 0 {
		return fields[0]
	}
	return truncate(campaign, 20)
}

var structuredPrefixes = map[string]bool{"VID": true, "DISP": true, "PMAX": true, "DG": true}

var knownNameBrands = []string{"mcdonalds", "nivea", "philips", "kaufland", "omv", "beiersdorf", "garnier"}

// StructuredBrand reads the brand token of names following the
// PREFIX_AGENCY_MARKET_BRAND convention.
func StructuredBrand(campaign string) string {
	if campaign == "" {
		return "Unknown"
	}
	parts := strings.Split(campaign, "_")
	if len(parts) >= 4 && structuredPrefixes[parts[0]] {
		return parts[3]
	}
	if len(parts) >= 2 {
		for _, p := range parts {
			lp := strings.ToLower(p)
			for _, kb := range knownNameBrands {
				if strings.Contains(lp, kb) {
					return p
				}
			}
		}
		return parts[1]
	}
	return parts[0]
}

// FixCroatiaBrand replaces the market name that leaks into the brand of
// some accounts with the real brand.
func FixCroatiaBrand(brand, account string) string {
	if brand != "Croatia" || account == "" {
		return brand
	}
	acc := strings.ToLower(account)
	switch {
	case strings.Contains(acc, "bison"):
		return "Bison"
	case strings.Contains(acc, "ceresit"):
		return "Ceresit"
	}
	head, _, _ := strings.Cut(account, "_")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return "Unknown"
	}
	return truncate(fields[0], 30)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
