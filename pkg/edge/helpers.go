package edge

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/anhnt/edge/internal/scope"
)

// registerHelpers installs the helpers every template can call.
func registerHelpers(g *scope.Globals) {
	helpers := map[string]interface{}{
		"safe":     safe,
		"upper":    upper,
		"lower":    lower,
		"title":    title,
		"truncate": truncate,
		"json":     toJSON,
		"size":     size,
		"default":  fallback,
		"nl2br":    nl2br,
		"range":    numbers,
	}
	for name, fn := range helpers {
		// every entry is a function, Helper cannot fail
		_ = g.Helper(name, fn)
	}
}

// safe marks a value as already escaped.
func safe(v interface{}) scope.SafeValue {
	if s, ok := v.(scope.SafeValue); ok {
		return s
	}
	return scope.Safe(scope.ToString(v))
}

// Casers are stateful and not safe to share, so each call builds one.
func upper(v interface{}) string {
	return cases.Upper(language.Und).String(scope.ToString(v))
}

func lower(v interface{}) string {
	return cases.Lower(language.Und).String(scope.ToString(v))
}

func title(v interface{}) string {
	return cases.Title(language.English).String(scope.ToString(v))
}

// truncate cuts s to n runes and appends suffix, "..." by default.
func truncate(v interface{}, n int, suffix ...string) string {
	s := scope.ToString(v)
	runes := []rune(s)
	if n < 0 || len(runes) <= n {
		return s
	}
	end := "..."
	if len(suffix) > 0 {
		end = suffix[0]
	}
	return strings.TrimRight(string(runes[:n]), " ") + end
}

func toJSON(v interface{}, indent ...int) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(indent) > 0 && indent[0] > 0 {
		data, err = json.MarshalIndent(v, "", strings.Repeat(" ", indent[0]))
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func size(v interface{}) int {
	n, _ := scope.Length(v)
	return n
}

// fallback returns def when v is falsy.
func fallback(v, def interface{}) interface{} {
	if scope.Truthy(v) {
		return v
	}
	return def
}

// nl2br escapes s and turns newlines into <br> tags.
func nl2br(v interface{}) scope.SafeValue {
	s := scope.DefaultEscaper(scope.ToString(v))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return scope.Safe(strings.ReplaceAll(s, "\n", "<br>\n"))
}

// numbers returns [start, end) stepping by one, or [0, start) with a single
// argument.
func numbers(start int, end ...int) []int {
	from, to := 0, start
	if len(end) > 0 {
		from, to = start, end[0]
	}
	if to <= from {
		return []int{}
	}
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
