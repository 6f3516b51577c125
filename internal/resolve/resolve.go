// Package resolve folds raw tool results into distinct candidate
// identities.
package resolve

import (
	"slices"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/cases"

	"github.com/sells-group/osint-cli/internal/model"
)

// DefaultRegion parses phone numbers that carry no country code.
const DefaultRegion = "US"

// Resolver deduplicates and merges tool results into candidates.
type Resolver struct {
	defaultRegion string
	fold          cases.Caser
}

// New creates a Resolver. defaultRegion is used to parse phone numbers
// without a leading country code; empty selects "US".
func New(defaultRegion string) *Resolver {
	if defaultRegion == "" {
		defaultRegion = DefaultRegion
	}
	return &Resolver{defaultRegion: defaultRegion, fold: cases.Fold()}
}

type extras struct {
	services []string
	ids      []string
}

// Resolve returns distinct candidates ordered by strength, strongest first.
// Output is deterministic for a fixed input order.
func (r *Resolver) Resolve(results []model.ToolResult, seed model.Params) []model.Candidate {
	byKey := make(map[string]*model.Candidate)
	var order []string
	extrasByKey := make(map[string]*extras)

	for _, res := range results {
		if res.Failed() {
			continue
		}
		if isExtras(res) {
			r.indexExtras(extrasByKey, res)
			continue
		}

		c := r.normalize(fieldsOf(res))
		k := Key(c)
		if k == "" {
			continue
		}
		if existing, ok := byKey[k]; ok {
			fillEmpty(existing, c)
			continue
		}
		cc := c
		byKey[k] = &cc
		order = append(order, k)
	}

	if len(order) == 0 {
		if c := r.SeedCandidate(seed); Key(c) != "" {
			k := Key(c)
			byKey[k] = &c
			order = append(order, k)
		}
	}

	candidates := make([]*model.Candidate, 0, len(order))
	for _, k := range order {
		c := byKey[k]
		attachExtras(c, extrasByKey)
		candidates = append(candidates, c)
	}

	candidates = r.collapse(candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		return Strength(*candidates[i]) > Strength(*candidates[j])
	})

	out := make([]model.Candidate, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		k := Key(*c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, *c)
	}
	return out
}

// SeedCandidate builds a normalized candidate from the seed parameters.
func (r *Resolver) SeedCandidate(seed model.Params) model.Candidate {
	return r.normalize(model.Candidate{
		Name:     seed.String(model.FieldName),
		Email:    seed.String(model.FieldEmail),
		Phone:    seed.String(model.FieldPhone),
		Username: seed.String(model.FieldUsername),
		Location: seed.String(model.FieldLocation),
	})
}

// Key computes the dedup key with precedence email > phone > username >
// lowercased name. It returns "" when none is present.
func Key(c model.Candidate) string {
	switch {
	case c.Email != "":
		return "email:" + c.Email
	case c.Phone != "":
		return "phone:" + c.Phone
	case c.Username != "":
		return "username:" + c.Username
	case c.Name != "":
		return "name:" + strings.ToLower(c.Name)
	default:
		return ""
	}
}

// Strength is a monotonic identifiability score used for ranking.
func Strength(c model.Candidate) int {
	s := 0
	if c.Email != "" {
		s += 8
	}
	if c.Phone != "" {
		s += 4
	}
	if c.Username != "" {
		s += 2
	}
	if c.Name != "" {
		s++
	}
	return s
}

// NormalizePhone formats phone as E.164 using the resolver's default region.
func (r *Resolver) NormalizePhone(phone string) string {
	return NormalizePhone(phone, r.defaultRegion)
}

// NormalizePhone formats phone as E.164, falling back to the trimmed input
// when it cannot be parsed. A digits-only number is also read as
// international; that reading wins when the regional one is not a possible
// number.
func NormalizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(phone, region)
	if digitsOnly(phone) && (err != nil || !phonenumbers.IsPossibleNumber(num)) {
		intl, ierr := phonenumbers.Parse("+"+phone, region)
		if ierr == nil && phonenumbers.IsPossibleNumber(intl) {
			num, err = intl, nil
		}
	}
	if err != nil {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func (r *Resolver) normalize(c model.Candidate) model.Candidate {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Username = strings.ToLower(strings.TrimSpace(c.Username))
	c.Phone = r.NormalizePhone(c.Phone)
	c.Name = strings.TrimSpace(c.Name)
	c.Location = strings.TrimSpace(c.Location)
	return c
}

func (r *Resolver) indexExtras(idx map[string]*extras, res model.ToolResult) {
	var k string
	if email := strings.ToLower(res.Str(model.FieldEmail)); email != "" {
		k = "email:" + email
	} else if phone := r.NormalizePhone(res.Str(model.FieldPhone)); phone != "" {
		k = "phone:" + phone
	}
	if k == "" {
		return
	}
	e, ok := idx[k]
	if !ok {
		e = &extras{}
		idx[k] = e
	}
	e.services = union(e.services, res.Strs(model.FieldUsedServices))
	e.ids = union(e.ids, res.Strs(model.FieldUsedServiceIDs))
}

func attachExtras(c *model.Candidate, idx map[string]*extras) {
	var keys []string
	if c.Email != "" {
		keys = append(keys, "email:"+c.Email)
	}
	if c.Phone != "" {
		keys = append(keys, "phone:"+c.Phone)
	}
	for _, k := range keys {
		if e, ok := idx[k]; ok {
			c.UsedServices = union(c.UsedServices, e.services)
			c.UsedServiceIDs = union(c.UsedServiceIDs, e.ids)
		}
	}
}

// collapse unions candidates sharing a case-insensitive (name, location)
// pair. Both fields must be populated.
func (r *Resolver) collapse(in []*model.Candidate) []*model.Candidate {
	out := make([]*model.Candidate, 0, len(in))
	byPair := make(map[string]*model.Candidate)
	for _, c := range in {
		if c.Name == "" || c.Location == "" {
			out = append(out, c)
			continue
		}
		pair := r.fold.String(c.Name) + "\x00" + r.fold.String(c.Location)
		if existing, ok := byPair[pair]; ok {
			fillEmpty(existing, *c)
			existing.UsedServices = union(existing.UsedServices, c.UsedServices)
			existing.UsedServiceIDs = union(existing.UsedServiceIDs, c.UsedServiceIDs)
			continue
		}
		byPair[pair] = c
		out = append(out, c)
	}
	return out
}

func fillEmpty(dst *model.Candidate, src model.Candidate) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Phone == "" {
		dst.Phone = src.Phone
	}
	if dst.Username == "" {
		dst.Username = src.Username
	}
	if dst.Location == "" {
		dst.Location = src.Location
	}
}

func union(a, b []string) []string {
	for _, s := range b {
		if s != "" && !slices.Contains(a, s) {
			a = append(a, s)
		}
	}
	return a
}

func isExtras(res model.ToolResult) bool {
	_, hasServices := res.RawData[model.FieldUsedServices]
	_, hasIDs := res.RawData[model.FieldUsedServiceIDs]
	return hasServices || hasIDs
}

// fieldsOf reads the identity fields a source reports in its raw data.
func fieldsOf(res model.ToolResult) model.Candidate {
	c := model.Candidate{
		Name:     firstNonEmpty(res.Str("name"), res.Str("full_name")),
		Email:    res.Str("email"),
		Phone:    firstNonEmpty(res.Str("phone"), res.Str("international_format")),
		Username: firstNonEmpty(res.Str("username"), res.Str("login")),
		Location: res.Str("location"),
	}
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
