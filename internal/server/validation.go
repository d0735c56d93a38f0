package server

import (
	"encoding/json"
	"strings"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

const rootField = "(root)"

//go:embed schemas/profile.json
var profileSchemaJSON string

//go:embed schemas/result.json
var resultSchemaJSON string

var (
	profileSchema = mustSchema(profileSchemaJSON)
	resultSchema  = mustSchema(resultSchemaJSON)
)

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(err)
	}
	return schema
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, invalid("", "request body must be a JSON object")
	}
	return fields, nil
}

// requireFields rejects absent, null, blank string and empty object or array values.
func requireFields(fields map[string]json.RawMessage, names ...string) error {
	var missing []string
	for _, name := range names {
		if isBlank(fields[name]) {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return invalid("", "Missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func isBlank(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return len(strings.TrimSpace(string(raw))) == 0
	}

	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}

func validate(schema *gojsonschema.Schema, raw []byte, prefix string) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return invalid(prefix, "malformed JSON")
	}
	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]
	return invalid(joinField(prefix, first.Field()), "%s", first.Description())
}

func joinField(prefix, field string) string {
	if field == rootField || field == "" {
		return prefix
	}
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

func decodeProfile(raw []byte, field string) (scholarship.Profile, error) {
	var profile scholarship.Profile
	if err := validate(profileSchema, raw, field); err != nil {
		return profile, err
	}
	if err := decodeValidated(raw, &profile); err != nil {
		return profile, invalid(field, "invalid profile")
	}
	return profile, nil
}

func decodeResult(raw []byte, field string) (scholarship.MatchResult, error) {
	var result scholarship.MatchResult
	if err := validate(resultSchema, raw, field); err != nil {
		return result, err
	}
	if err := decodeValidated(raw, &result); err != nil {
		return result, invalid(field, "invalid scholarship results")
	}
	return result, nil
}

// decodeValidated maps schema-checked JSON onto out. Integral numbers written
// with a fraction part, such as 2.0, decode into int fields.
func decodeValidated(raw []byte, out any) error {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}
	return mapstructure.Decode(data, out)
}

func decodeString(raw json.RawMessage, field string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalid(field, "must be a string")
	}
	return strings.TrimSpace(s), nil
}
