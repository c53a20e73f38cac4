package brightdata

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// CompanyKind tells whether a company reference carries a usable name.
type CompanyKind int

const (
	CompanyUnknown CompanyKind = iota
	CompanyNamed
)

// CompanyRef is the normalized form of the vendor "current_company" field,
// which arrives either as a plain string or as a nested object.
type CompanyRef struct {
	Kind  CompanyKind `mapstructure:"kind"`
	Name  string      `mapstructure:"name"`
	Title string      `mapstructure:"title"`
	ID    string      `mapstructure:"company_id"`
	Link  string      `mapstructure:"link"`
}

// Named reports whether the reference has a non-empty company name.
func (c CompanyRef) Named() bool {
	return c.Kind == CompanyNamed && strings.TrimSpace(c.Name) != ""
}

// Count is a follower/connection counter. The vendor sends numbers as well as
// strings like "1,234" or "500+".
type Count int

type Experience struct {
	Company string `mapstructure:"company"`
	Title   string `mapstructure:"title"`
}

type Education struct {
	School string `mapstructure:"school"`
	Degree string `mapstructure:"degree"`
}

// Profile is a typed view over a single vendor profile object.
// Raw keeps the object as it was received.
type Profile struct {
	ID                 string       `mapstructure:"id"`
	Name               string       `mapstructure:"name"`
	URL                string       `mapstructure:"url"`
	City               string       `mapstructure:"city"`
	Location           string       `mapstructure:"location"`
	CurrentCompany     CompanyRef   `mapstructure:"current_company"`
	CurrentCompanyName string       `mapstructure:"current_company_name"`
	Position           string       `mapstructure:"position"`
	CurrentPosition    string       `mapstructure:"current_position"`
	Headline           string       `mapstructure:"headline"`
	About              string       `mapstructure:"about"`
	Experience         []Experience `mapstructure:"experience"`
	Education          []Education  `mapstructure:"education"`
	Followers          Count        `mapstructure:"followers"`
	Connections        Count        `mapstructure:"connections"`

	Raw map[string]any `mapstructure:"-"`
}

// CompanyName returns the current employer name, falling back to the flat
// "current_company_name" field.
func (p *Profile) CompanyName() string {
	if p == nil {
		return ""
	}
	if p.CurrentCompany.Named() {
		return strings.TrimSpace(p.CurrentCompany.Name)
	}
	return strings.TrimSpace(p.CurrentCompanyName)
}

// Title returns the first non-empty job title among the fields the vendor uses for it.
func (p *Profile) Title() string {
	if p == nil {
		return ""
	}
	for _, candidate := range []string{p.CurrentCompany.Title, p.Position, p.CurrentPosition, p.Headline} {
		if v := strings.TrimSpace(candidate); v != "" {
			return v
		}
	}
	return ""
}

var (
	companyRefType = reflect.TypeOf(CompanyRef{})
	countType      = reflect.TypeOf(Count(0))
	experienceType = reflect.TypeOf(Experience{})
	educationType  = reflect.TypeOf(Education{})
)

// DecodeProfile converts a single vendor object into a Profile.
func DecodeProfile(raw map[string]any) (*Profile, error) {
	profile := &Profile{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       profileDecodeHook,
		WeaklyTypedInput: true,
		Result:           profile,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	profile.Raw = raw
	return profile, nil
}

// DecodeProfiles converts a list of vendor items into profiles.
// Items that are not objects or cannot be decoded are skipped and counted.
func DecodeProfiles(items []any) ([]*Profile, int) {
	profiles := make([]*Profile, 0, len(items))
	skipped := 0

	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			skipped++
			continue
		}

		profile, err := DecodeProfile(raw)
		if err != nil {
			skipped++
			continue
		}

		profiles = append(profiles, profile)
	}

	return profiles, skipped
}

func profileDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case companyRefType:
		return companyRefInput(data), nil
	case countType:
		return int(parseCount(data)), nil
	case experienceType:
		m, _ := data.(map[string]any)
		return map[string]any{
			"company": scalarString(m["company"]),
			"title":   scalarString(m["title"]),
		}, nil
	case educationType:
		m, _ := data.(map[string]any)
		school := scalarString(m["school"])
		if strings.TrimSpace(school) == "" {
			school = scalarString(m["title"])
		}
		return map[string]any{
			"school": school,
			"degree": scalarString(m["degree"]),
		}, nil
	}

	// Nested objects where a plain string is expected carry nothing we can use.
	if to.Kind() == reflect.String && from != nil {
		switch from.Kind() {
		case reflect.Map, reflect.Slice, reflect.Struct:
			return "", nil
		}
	}

	return data, nil
}

func companyRefInput(data any) map[string]any {
	out := map[string]any{"kind": int(CompanyUnknown)}

	switch v := data.(type) {
	case map[string]any:
		name := strings.TrimSpace(scalarString(v["name"]))
		out["name"] = name
		out["title"] = scalarString(v["title"])
		out["company_id"] = scalarString(v["company_id"])
		out["link"] = scalarString(v["link"])
		if name != "" {
			out["kind"] = int(CompanyNamed)
		}
	default:
		name := strings.TrimSpace(scalarString(v))
		if name != "" {
			out["name"] = name
			out["kind"] = int(CompanyNamed)
		}
	}

	return out
}

// scalarString renders strings and numbers; objects are reduced to their "name".
func scalarString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case map[string]any:
		return scalarString(typed["name"])
	case []any:
		return ""
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func parseCount(v any) Count {
	switch typed := v.(type) {
	case int:
		return Count(typed)
	case int64:
		return Count(typed)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0
		}
		return Count(typed)
	case string:
		cleaned := strings.NewReplacer(",", "", "+", "").Replace(strings.TrimSpace(typed))
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return 0
		}
		return Count(n)
	default:
		return 0
	}
}
