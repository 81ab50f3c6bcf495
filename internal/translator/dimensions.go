package translator

import (
	"fmt"
	"strings"

	"github.com/j-veylop/claude-code-metrics/internal/models"
)

// OTLP attribute keys read from data points and resources.
const (
	attrTokenType       = "type"
	attrServiceName     = "service.name"
	attrUserEmail       = "user.email"
	attrUserAccountUUID = "user.account_uuid"
	attrUserID          = "user.id"
)

// Dimension names attached to published records.
const (
	DimensionServiceName = "ServiceName"
	DimensionUser        = "User"
	DimensionTokenType   = "TokenType"
)

// UnknownValue stands in for identity dimensions that could not be resolved.
const UnknownValue = "unknown"

// userKeys are consulted in priority order.
var userKeys = []string{attrUserEmail, attrUserAccountUUID, attrUserID}

// DimensionMapping copies an OTLP attribute into a named dimension.
type DimensionMapping struct {
	Attribute string
	Name      string
}

// DimensionPolicy controls which dimensions beyond User (and TokenType for
// token usage) are attached to every record.
type DimensionPolicy struct {
	// Extra dimensions are appended, in order, only when the attribute is present.
	Extra []DimensionMapping
	// IncludeServiceName prepends ServiceName, "unknown" when the resource
	// does not carry service.name.
	IncludeServiceName bool
}

// DefaultDimensionPolicy returns the policy used when nothing is configured.
func DefaultDimensionPolicy() DimensionPolicy {
	return DimensionPolicy{IncludeServiceName: true}
}

// ParseDimensionMappings parses "attr=Name,attr2=Name2". Whitespace around
// entries is ignored and an empty string yields no mappings.
func ParseDimensionMappings(value string) ([]DimensionMapping, error) {
	var mappings []DimensionMapping
	seen := make(map[string]bool)

	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		attr, name, ok := strings.Cut(entry, "=")
		attr, name = strings.TrimSpace(attr), strings.TrimSpace(name)
		if !ok || attr == "" || name == "" {
			return nil, fmt.Errorf("invalid dimension mapping %q: want attribute=Name", entry)
		}

		switch name {
		case DimensionServiceName, DimensionUser, DimensionTokenType:
			return nil, fmt.Errorf("dimension name %q is reserved", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate dimension name %q", name)
		}
		seen[name] = true

		mappings = append(mappings, DimensionMapping{Attribute: attr, Name: name})
	}

	return mappings, nil
}

// dimensions builds [ServiceName] User <metric-specific...> <extra...>.
func (t *Translator) dimensions(res models.Resource, dp models.DataPoint, specific ...models.Dimension) []models.Dimension {
	policy := t.config.Dimensions
	dims := make([]models.Dimension, 0, 2+len(specific)+len(policy.Extra))

	if policy.IncludeServiceName {
		service := res.Attributes.Get(attrServiceName)
		if service == "" {
			service = dp.Attributes.Get(attrServiceName)
		}
		if service == "" {
			service = UnknownValue
		}
		dims = append(dims, models.Dimension{Name: DimensionServiceName, Value: service})
	}

	dims = append(dims, models.Dimension{Name: DimensionUser, Value: resolveUser(res, dp)})
	dims = append(dims, specific...)

	for _, m := range policy.Extra {
		if v := lookup(res, dp, m.Attribute); v != "" {
			dims = append(dims, models.Dimension{Name: m.Name, Value: v})
		}
	}

	return dims
}

// resolveUser returns the first non-empty identity by key priority. Each key
// is looked up on the data point before the resource.
func resolveUser(res models.Resource, dp models.DataPoint) string {
	for _, key := range userKeys {
		if v := lookup(res, dp, key); v != "" {
			return v
		}
	}
	return UnknownValue
}

func lookup(res models.Resource, dp models.DataPoint, key string) string {
	if v := dp.Attributes.Get(key); v != "" {
		return v
	}
	return res.Attributes.Get(key)
}
