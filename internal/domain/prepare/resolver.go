package prepare

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Role names a semantic column of the input table.
type Role string

// Semantic roles in resolution order.
const (
	RoleDate      Role = "date"
	RoleTMin      Role = "tmin"
	RoleTMax      Role = "tmax"
	RoleLeafCount Role = "nf"
)

// Roles lists every role a resolver must assign.
var Roles = []Role{RoleDate, RoleTMin, RoleTMax, RoleLeafCount}

// Columns maps each role to a zero-based column index.
type Columns struct {
	Date      int
	TMin      int
	TMax      int
	LeafCount int
}

func (c *Columns) set(r Role, idx int) {
	switch r {
	case RoleDate:
		c.Date = idx
	case RoleTMin:
		c.TMin = idx
	case RoleTMax:
		c.TMax = idx
	case RoleLeafCount:
		c.LeafCount = idx
	}
}

// Resolver assigns table headers to semantic roles.
type Resolver interface {
	Resolve(headers []string) (Columns, error)
}

// StrictResolver requires exact, case-sensitive header names.
type StrictResolver struct {
	Names map[Role]string
}

// DefaultStrictNames are the canonical headers Data, Tmin, Tmax and NF.
var DefaultStrictNames = map[Role]string{
	RoleDate:      "Data",
	RoleTMin:      "Tmin",
	RoleTMax:      "Tmax",
	RoleLeafCount: "NF",
}

// NewStrictResolver returns a resolver over the canonical header names.
func NewStrictResolver() StrictResolver {
	return StrictResolver{Names: DefaultStrictNames}
}

// Resolve implements Resolver.
func (s StrictResolver) Resolve(headers []string) (Columns, error) {
	names := s.Names
	if names == nil {
		names = DefaultStrictNames
	}
	return assign(headers, func(r Role, h string) bool {
		return h == names[r]
	}, func(r Role) string { return names[r] })
}

// FuzzyResolver matches headers case-insensitively by keywords that start a
// word, so "dia" matches "Dia" but not "Temperatura Média". Keywords are
// tried in order, so earlier keywords take precedence over later ones.
type FuzzyResolver struct {
	Keywords map[Role][]string
}

// DefaultKeywords are the substrings the fuzzy resolver looks for.
var DefaultKeywords = map[Role][]string{
	RoleDate:      {"data", "date", "dia"},
	RoleTMin:      {"tmin", "t min", "temp min", "temperatura min"},
	RoleTMax:      {"tmax", "t max", "temp max", "temperatura max"},
	RoleLeafCount: {"nf", "folhas", "numero", "número", "leaves"},
}

// NewFuzzyResolver returns a resolver over the default keyword sets.
func NewFuzzyResolver() FuzzyResolver {
	return FuzzyResolver{Keywords: DefaultKeywords}
}

// Resolve implements Resolver. A column already taken by an earlier role is
// not reused.
func (f FuzzyResolver) Resolve(headers []string) (Columns, error) {
	kw := f.Keywords
	if kw == nil {
		kw = DefaultKeywords
	}
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var cols Columns
	taken := make(map[int]bool, len(Roles))
	var missing []string
	for _, r := range Roles {
		idx := -1
	search:
		for _, k := range kw[r] {
			for i, h := range lower {
				if !taken[i] && containsWord(h, k) {
					idx = i
					break search
				}
			}
		}
		if idx < 0 {
			missing = append(missing, string(r))
			continue
		}
		taken[idx] = true
		cols.set(r, idx)
	}
	if len(missing) > 0 {
		return Columns{}, &SchemaError{Missing: missing, Found: trimmed(headers)}
	}
	return cols, nil
}

// ExplicitMapping names the header used for each role.
type ExplicitMapping map[Role]string

// Resolve implements Resolver. Header comparison ignores surrounding space.
func (m ExplicitMapping) Resolve(headers []string) (Columns, error) {
	return assign(headers, func(r Role, h string) bool {
		want := strings.TrimSpace(m[r])
		return want != "" && h == want
	}, func(r Role) string {
		if m[r] == "" {
			return string(r)
		}
		return m[r]
	})
}

// ChainResolver tries each resolver in turn and returns the first success.
// When all fail the last error is returned.
type ChainResolver []Resolver

// Resolve implements Resolver.
func (c ChainResolver) Resolve(headers []string) (Columns, error) {
	var lastErr error = &SchemaError{Missing: roleNames(), Found: trimmed(headers)}
	for _, r := range c {
		cols, err := r.Resolve(headers)
		if err == nil {
			return cols, nil
		}
		lastErr = err
	}
	return Columns{}, lastErr
}

func assign(headers []string, match func(Role, string) bool, label func(Role) string) (Columns, error) {
	found := trimmed(headers)
	var cols Columns
	var missing, ambiguous []string
	owner := make(map[int]Role, len(Roles))
	for _, r := range Roles {
		idx := -1
		for i, h := range found {
			if match(r, h) {
				idx = i
				break
			}
		}
		if idx < 0 {
			missing = append(missing, label(r))
			continue
		}
		if _, dup := owner[idx]; dup {
			ambiguous = append(ambiguous, found[idx])
			continue
		}
		owner[idx] = r
		cols.set(r, idx)
	}
	if len(missing) > 0 || len(ambiguous) > 0 {
		return Columns{}, &SchemaError{Missing: missing, Ambiguous: ambiguous, Found: found}
	}
	return cols, nil
}

// containsWord reports whether k occurs in h at the start of a word.
func containsWord(h, k string) bool {
	for off := 0; off <= len(h)-len(k); {
		i := strings.Index(h[off:], k)
		if i < 0 {
			return false
		}
		at := off + i
		prev, _ := utf8.DecodeLastRuneInString(h[:at])
		if at == 0 || !(unicode.IsLetter(prev) || unicode.IsDigit(prev)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(h[at:])
		off = at + size
	}
	return false
}

func trimmed(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func roleNames() []string {
	out := make([]string, len(Roles))
	for i, r := range Roles {
		out[i] = string(r)
	}
	return out
}
