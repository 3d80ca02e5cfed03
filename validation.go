package finagent

import (
	"bytes"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validatable is implemented by argument structs that need custom business validation.
// Called after schema validation and unmarshaling.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON value decoded with sjsonschema.UnmarshalJSON.
// *sjsonschema.Schema implements it.
type schemaValidator interface {
	Validate(v any) error
}

// decodeInstance parses argsJSON the way the schema validator expects (numbers as json.Number).
func decodeInstance(argsJSON []byte) (any, error) {
	v, err := sjsonschema.UnmarshalJSON(bytes.NewReader(argsJSON))
	if err != nil {
		return nil, wrapJSONParseError(err)
	}
	return v, nil
}

// validateAgainstSchema runs Layer 1 validation on an already-decoded value.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// validateCustom runs Layer 2 (Validatable) if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
