package identity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/vishu3131/civisync/domain"
)

// profileDocumentSchema constrains the shape of provider profile documents.
// Documents may carry more fields than listed here; only allow-listed ones
// survive the merge.
const profileDocumentSchema = `{
	"type": "object",
	"properties": {
		"display_name": {"type": "string"},
		"avatar_url": {"type": "string"},
		"phone_number": {"type": "string"},
		"bio": {"type": "string"},
		"city": {"type": "string"},
		"interests": {"type": "array", "items": {"type": "string"}}
	}
}`

// extraFieldAllowList names the document fields carried into
// IdentitySnapshot.Extra. Anything else is dropped to keep provider schema
// drift out of the application store.
var extraFieldAllowList = []string{"bio", "city", "interests"}

// documentValidator validates raw profile documents against the schema.
type documentValidator struct {
	schema *jsonschema.Schema
}

func newDocumentValidator() (*documentValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(profileDocumentSchema))
	if err != nil {
		return nil, fmt.Errorf("parsing profile document schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profile_document.json", doc); err != nil {
		return nil, fmt.Errorf("registering profile document schema: %w", err)
	}
	schema, err := compiler.Compile("profile_document.json")
	if err != nil {
		return nil, fmt.Errorf("compiling profile document schema: %w", err)
	}
	return &documentValidator{schema: schema}, nil
}

// Validate normalizes a decoded document to plain JSON types and checks it
// against the schema. BSON-specific types are flattened by the round trip.
func (v *documentValidator) Validate(doc map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalizing profile document: %w", err)
	}
	var normalized map[string]any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("normalizing profile document: %w", err)
	}
	if err := v.schema.Validate(any(normalized)); err != nil {
		return nil, err
	}
	return normalized, nil
}

// mergeDocument applies a validated profile document onto the base
// snapshot. Scalar identity fields override only when the document carries a
// non-empty value; extra fields are copied through the allow-list.
func mergeDocument(snapshot *domain.IdentitySnapshot, doc map[string]any) {
	if s, ok := doc["display_name"].(string); ok && s != "" {
		snapshot.DisplayName = s
	}
	if s, ok := doc["avatar_url"].(string); ok && s != "" {
		snapshot.AvatarURL = s
	}
	if s, ok := doc["phone_number"].(string); ok && s != "" {
		snapshot.PhoneNumber = s
	}

	for _, key := range extraFieldAllowList {
		value, ok := doc[key]
		if !ok || value == nil {
			continue
		}
		if snapshot.Extra == nil {
			snapshot.Extra = make(map[string]any, len(extraFieldAllowList))
		}
		snapshot.Extra[key] = value
	}
}
