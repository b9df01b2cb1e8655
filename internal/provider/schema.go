package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/apperrors"
)

// schemaFor derives a JSON schema from a Go struct shape with
// invopop/jsonschema, caching nothing since it only runs once per schema
// type at package init. This is how each vendor's wire struct gets a
// schema to validate raw responses against: adapters must validate the
// raw vendor response against a declared schema before translation.
func schemaFor(v any) *gojsonschema.Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	raw := reflector.Reflect(v)
	b, err := json.Marshal(raw)
	if err != nil {
		panic(fmt.Sprintf("provider: marshaling generated schema: %v", err))
	}
	loader := gojsonschema.NewBytesLoader(b)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		panic(fmt.Sprintf("provider: compiling generated schema: %v", err))
	}
	return schema
}

// validateRaw checks payload (already-decoded into the same shape the
// schema was built from) against schema, returning a non-retryable
// PROVIDER_SCHEMA_ERROR carrying the raw payload on mismatch.
func validateRaw(schema *gojsonschema.Schema, payload []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return apperrors.ProviderSchema("schema validation failed to run", string(payload))
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return apperrors.ProviderSchema("vendor response failed schema validation: "+strings.Join(problems, "; "), string(payload))
	}
	return nil
}
