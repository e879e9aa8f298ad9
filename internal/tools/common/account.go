package common

import (
	"fmt"

	"github.com/teemow/gmailplayground/internal/google"
)

// GetAccountFromArgs returns the "account" argument or the default account.
func GetAccountFromArgs(args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return google.DefaultAccount
}

// GetStringArg returns a non-empty string argument or def.
func GetStringArg(args map[string]interface{}, name, def string) string {
	if v, ok := args[name].(string); ok && v != "" {
		return v
	}
	return def
}

// GetIntArg returns a numeric argument as int or def. JSON numbers arrive as
// float64.
func GetIntArg(args map[string]interface{}, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// GetBoolArg returns a boolean argument or def.
func GetBoolArg(args map[string]interface{}, name string, def bool) bool {
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}

// GetStringListArg returns an argument given as a single string or an array
// of strings. A missing argument yields def.
func GetStringListArg(args map[string]interface{}, name string, def []string) ([]string, error) {
	param, ok := args[name]
	if !ok || param == nil {
		return def, nil
	}

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", name)
		}
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", name, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", name, i)
			}
			result = append(result, str)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}
}
