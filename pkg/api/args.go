package api

import "maps"

type (
	// Args represents a map of named arguments passed to or from steps
	Args map[Name]any

	// Name is a string identifier for steps, groups, and arguments
	Name string
)

// Set creates a new Args with the specified name-value pair added
func (a Args) Set(name Name, value any) Args {
	if a == nil {
		return Args{name: value}
	}
	res := maps.Clone(a)
	res[name] = value
	return res
}

// GetString retrieves a string value from args, returning defaultValue if not
// found or wrong type
func (a Args) GetString(name Name, defaultValue string) string {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	str, ok := val.(string)
	if !ok {
		return defaultValue
	}
	return str
}

// GetBool retrieves a boolean value from args, returning defaultValue if not
// found or wrong type
func (a Args) GetBool(name Name, defaultValue bool) bool {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	b, ok := val.(bool)
	if !ok {
		return defaultValue
	}
	return b
}

// GetInt retrieves an integer value from args, returning defaultValue if not
// found or wrong type. Supports both int and float64 (converting from JSON
// numbers)
func (a Args) GetInt(name Name, defaultValue int) int {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	if i, ok := val.(int); ok {
		return i
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return defaultValue
}

// GetInt64 retrieves a 64-bit integer value from args, returning defaultValue
// if not found or wrong type
func (a Args) GetInt64(name Name, defaultValue int64) int64 {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return defaultValue
}

// Normalize wraps a non-map value as Args under the "result" key. Map-shaped
// values pass through with their keys converted
func Normalize(value any) Args {
	switch v := value.(type) {
	case Args:
		return v
	case map[Name]any:
		return v
	case map[string]any:
		args := make(Args, len(v))
		for k, val := range v {
			args[Name(k)] = val
		}
		return args
	default:
		return Args{"result": value}
	}
}
