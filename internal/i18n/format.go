package i18n

import (
	"fmt"
	"strings"
)

// MissingParamError reports the first placeholder that had no value.
type MissingParamError struct {
	Name string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("missing value for placeholder %q", e.Name)
}

// Format substitutes {{name}} placeholders from params. When any placeholder
// has no value the template is returned unchanged together with a
// *MissingParamError.
func Format(tmpl string, params map[string]interface{}) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end == -1 {
			b.WriteString(rest)
			break
		}
		end += start + 2

		name := strings.TrimSpace(rest[start+2 : end])
		v, ok := params[name]
		if !ok {
			return tmpl, &MissingParamError{Name: name}
		}

		b.WriteString(rest[:start])
		b.WriteString(stringify(v))
		rest = rest[end+2:]
	}

	return b.String(), nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case float64:
		// JSON numbers decode as float64; print integers without a fraction.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
