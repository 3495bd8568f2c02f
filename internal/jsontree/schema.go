package jsontree

import "fmt"

// ValidationResult reports schema conformance. Errors are path-qualified,
// e.g. "$.counts.humans: expected integer, got string".
type ValidationResult struct {
	OK     bool
	Errors []string
}

// Validate checks a decoded JSON value against a declarative schema. The
// schema is itself ordinary JSON-like data (type/properties/required/items/
// additionalProperties) because it is also sent verbatim in the outbound
// model request.
func Validate(value, schema any) ValidationResult {
	errs := validateNode(From(value), From(schema), "$")
	return ValidationResult{OK: len(errs) == 0, Errors: errs}
}

func validateNode(v, schema Value, path string) []string {
	if schema.Kind != KindObject {
		return []string{fmt.Sprintf("%s: schema node is not an object", path)}
	}

	typ := schema.Obj["type"].Str
	switch typ {
	case "object":
		return validateObject(v, schema, path)
	case "array":
		return validateArray(v, schema, path)
	case "string":
		if v.Kind != KindString {
			return []string{fmt.Sprintf("%s: expected string, got %s", path, kindName(v.Kind))}
		}
		return nil
	case "number", "integer":
		// Numeric strings are rejected: the model must emit real numbers.
		if v.Kind != KindNumber {
			return []string{fmt.Sprintf("%s: expected %s, got %s", path, typ, kindName(v.Kind))}
		}
		return nil
	case "boolean":
		if v.Kind != KindBool {
			return []string{fmt.Sprintf("%s: expected boolean, got %s", path, kindName(v.Kind))}
		}
		return nil
	default:
		return []string{fmt.Sprintf("%s: unsupported schema type %q", path, typ)}
	}
}

func validateObject(v, schema Value, path string) []string {
	if v.Kind != KindObject {
		return []string{fmt.Sprintf("%s: expected object, got %s", path, kindName(v.Kind))}
	}

	var errs []string

	props := schema.Obj["properties"].Obj

	if required, ok := schema.Obj["required"]; ok && required.Kind == KindArray {
		for _, r := range required.Arr {
			if _, present := v.Obj[r.Str]; !present {
				errs = append(errs, fmt.Sprintf("%s.%s: missing required field", path, r.Str))
			}
		}
	}

	if ap, ok := schema.Obj["additionalProperties"]; ok && ap.Kind == KindBool && !ap.Bool {
		for _, k := range sortedKeys(v.Obj) {
			if _, declared := props[k]; !declared {
				errs = append(errs, fmt.Sprintf("%s.%s: unexpected field", path, k))
			}
		}
	}

	for _, k := range sortedKeys(v.Obj) {
		propSchema, declared := props[k]
		if !declared {
			continue
		}
		errs = append(errs, validateNode(v.Obj[k], propSchema, path+"."+k)...)
	}

	return errs
}

func validateArray(v, schema Value, path string) []string {
	if v.Kind != KindArray {
		return []string{fmt.Sprintf("%s: expected array, got %s", path, kindName(v.Kind))}
	}

	items, ok := schema.Obj["items"]
	if !ok {
		return nil
	}

	var errs []string
	for i, e := range v.Arr {
		errs = append(errs, validateNode(e, items, fmt.Sprintf("%s[%d]", path, i))...)
	}
	return errs
}

func kindName(k Kind) string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}
