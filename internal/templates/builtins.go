package templates

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// TitleCase title-cases s using English casing rules.
func TitleCase(s string) string {
	return titleCaser.String(s)
}

// Urlize lowercases s and turns runs of non-alphanumerics into single dashes.
func Urlize(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func builtinFuncs() template.FuncMap {
	return template.FuncMap{
		"title":  TitleCase,
		"lower":  strings.ToLower,
		"upper":  strings.ToUpper,
		"urlize": Urlize,
		"join": func(sep string, items any) string {
			switch v := items.(type) {
			case []string:
				return strings.Join(v, sep)
			case []any:
				parts := make([]string, len(v))
				for i, e := range v {
					parts[i] = fmt.Sprint(e)
				}
				return strings.Join(parts, sep)
			default:
				return fmt.Sprint(items)
			}
		},
		"default": func(def, v any) any {
			if v == nil {
				return def
			}
			if s, ok := v.(string); ok && s == "" {
				return def
			}
			return v
		},
		"dateFormat": func(layout string, v any) (string, error) {
			switch t := v.(type) {
			case time.Time:
				return t.Format(layout), nil
			case string:
				parsed, err := parseDate(t)
				if err != nil {
					return "", err
				}
				return parsed.Format(layout), nil
			default:
				return "", fmt.Errorf("dateFormat: unsupported value %T", v)
			}
		},
		"now": func() time.Time { return time.Now().UTC() },
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("dateFormat: cannot parse %q", s)
}
