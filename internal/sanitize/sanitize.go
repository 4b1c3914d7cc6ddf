package sanitize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	scriptBlockPattern   = regexp.MustCompile(`(?is)<\s*(script|style)\b[^>]*>.*?<\s*/\s*(script|style)\s*>`)
	unclosedScriptPrefix = regexp.MustCompile(`(?is)<\s*(script|style)\b[^>]*>.*$`)
	tagPattern           = regexp.MustCompile(`(?s)<[^<>]*>`)
	eventHandlerPattern  = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]*)`)
	scriptSchemePattern  = regexp.MustCompile(`(?i)(java|vb)\s*script\s*:`)
	dataSchemePattern    = regexp.MustCompile(`(?i)\bdata:[a-z]+/[a-z0-9.+-]+`)
	emailPattern         = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)
	sqlKeywordPattern    = regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|union|exec|execute|alter|create|truncate|grant|revoke)\b`)
	sqlCommentPattern    = regexp.MustCompile(`--|/\*|\*/`)
)

var safeDataPrefixes = []string{"image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp"}

var htmlPolicy = newHTMLPolicy()

func newHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "strong", "em", "b", "i", "u",
		"ul", "ol", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	return p
}

// Input strips markup and script vectors from untrusted text. Passes repeat
// until the value stops changing, so Input(Input(x)) == Input(x).
func Input(value string) string {
	current := value
	for {
		next := inputPass(current)
		if next == current {
			return next
		}
		current = next
	}
}

func inputPass(value string) string {
	out := scriptBlockPattern.ReplaceAllString(value, "")
	out = unclosedScriptPrefix.ReplaceAllString(out, "")
	out = eventHandlerPattern.ReplaceAllString(out, "")
	out = tagPattern.ReplaceAllString(out, "")
	out = scriptSchemePattern.ReplaceAllString(out, "")
	out = dataSchemePattern.ReplaceAllStringFunc(out, func(match string) string {
		if isSafeDataURI(match) {
			return match
		}
		return ""
	})
	return collapseWhitespace(out)
}

func isSafeDataURI(match string) bool {
	idx := strings.Index(match, ":")
	if idx < 0 {
		return false
	}
	mediaType := strings.ToLower(strings.TrimSpace(match[idx+1:]))
	for _, prefix := range safeDataPrefixes {
		if mediaType == prefix {
			return true
		}
	}
	return false
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// truncate cuts value to at most n bytes without splitting a rune.
func truncate(value string, n int) string {
	if len(value) <= n {
		return value
	}
	for n > 0 && !utf8.RuneStart(value[n]) {
		n--
	}
	return value[:n]
}

// HTML keeps a fixed set of formatting tags and drops everything else,
// including style attributes and event handlers.
func HTML(value string) string {
	return strings.TrimSpace(htmlPolicy.Sanitize(value))
}

// Object walks maps and slices and sanitizes every string leaf.
func Object(value any) any {
	switch typed := value.(type) {
	case string:
		return Input(typed)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Object(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Object(item)
		}
		return out
	case []string:
		out := make([]string, len(typed))
		for i, item := range typed {
			out[i] = Input(item)
		}
		return out
	default:
		return value
	}
}

func Strings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := Input(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func Email(value string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if len(normalized) > 254 || !emailPattern.MatchString(normalized) {
		return "", false
	}
	return normalized, true
}

// Phone keeps digits plus a single leading plus sign.
func Phone(value string) string {
	trimmed := strings.TrimSpace(value)
	var b strings.Builder
	for i, r := range trimmed {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

func Number(value any) (float64, bool) {
	var parsed float64
	switch typed := value.(type) {
	case float64:
		parsed = typed
	case float32:
		parsed = float64(typed)
	case int:
		parsed = float64(typed)
	case int32:
		parsed = float64(typed)
	case int64:
		parsed = float64(typed)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		parsed = f
	default:
		return 0, false
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

func Bool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "1", "yes", "on":
			return true
		}
		return false
	case float64:
		return typed == 1
	case int:
		return typed == 1
	default:
		return false
	}
}

func Filename(value string) string {
	out := strings.ReplaceAll(value, "..", "")
	out = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case strings.ContainsRune(`/\<>:"|?*`, r):
			return -1
		}
		return r
	}, out)
	out = strings.Trim(strings.TrimSpace(out), ".")
	return truncate(out, 255)
}

// SQL strips statement keywords and quoting characters. It does not replace
// parameterized queries.
func SQL(value string) string {
	out := sqlCommentPattern.ReplaceAllString(value, "")
	out = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`'";\`, r) {
			return -1
		}
		return r
	}, out)
	out = sqlKeywordPattern.ReplaceAllString(out, "")
	return collapseWhitespace(out)
}
