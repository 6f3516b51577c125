// Package region infers a country and search market from identity clues.
package region

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/cases"

	"github.com/sells-group/osint-cli/internal/model"
)

// DefaultCountry is used when no clue resolves a country.
const DefaultCountry = "US"

// DefaultMarket is used for countries without a market entry.
const DefaultMarket = "en-US"

// Region is the inferred country code and its search market.
type Region struct {
	Country string `json:"country"`
	Market  string `json:"mkt"`
}

type gazetteerEntry struct {
	token   string
	country string
}

// Order matters: the first matching token wins.
var gazetteer = []gazetteerEntry{
	{"india", "IN"}, {"jharkhand", "IN"}, {"delhi", "IN"}, {"mumbai", "IN"},
	{"bengaluru", "IN"}, {"bangalore", "IN"}, {"hyderabad", "IN"},
	{"united kingdom", "GB"}, {"uk", "GB"}, {"london", "GB"},
	{"canada", "CA"}, {"toronto", "CA"},
	{"australia", "AU"}, {"sydney", "AU"},
}

var tldCountries = []struct {
	suffix  string
	country string
}{
	{".in", "IN"},
	{".uk", "GB"},
	{".ca", "CA"},
	{".au", "AU"},
}

var markets = map[string]string{
	"IN": "en-IN",
	"GB": "en-GB",
	"CA": "en-CA",
	"AU": "en-AU",
	"US": "en-US",
}

var fold = cases.Fold()

// Resolve infers the region with precedence phone > location > email TLD
// > DefaultCountry.
func Resolve(params model.Params) Region {
	country := FromPhone(params.String(model.FieldPhone))
	if country == "" {
		country = FromLocation(params.String(model.FieldLocation))
	}
	if country == "" {
		country = FromEmail(params.String(model.FieldEmail))
	}
	if country == "" {
		country = DefaultCountry
	}
	return Region{Country: country, Market: Market(country)}
}

// FromPhone returns the region of an internationally formatted number.
func FromPhone(phone string) string {
	if phone == "" {
		return ""
	}
	num, err := phonenumbers.Parse(phone, "")
	if err != nil {
		return ""
	}
	cc := phonenumbers.GetRegionCodeForNumber(num)
	if cc == "ZZ" {
		return ""
	}
	return cc
}

// FromLocation matches free-text location against the gazetteer.
func FromLocation(location string) string {
	if location == "" {
		return ""
	}
	loc := fold.String(location)
	for _, e := range gazetteer {
		if strings.Contains(loc, e.token) {
			return e.country
		}
	}
	return ""
}

// FromEmail maps a handful of country-code TLDs.
func FromEmail(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	domain = strings.ToLower(domain)
	for _, t := range tldCountries {
		if strings.HasSuffix(domain, t.suffix) {
			return t.country
		}
	}
	return ""
}

// Market maps a country code to a search market string.
func Market(country string) string {
	if m, ok := markets[strings.ToUpper(country)]; ok {
		return m
	}
	return DefaultMarket
}
