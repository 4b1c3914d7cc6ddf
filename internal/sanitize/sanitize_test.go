package sanitize

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputStripsScriptsAndMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "script with content", input: `hello <script>alert("x")</script>world`, want: "hello world"},
		{name: "style block", input: `<style>body{display:none}</style>visible`, want: "visible"},
		{name: "plain tags", input: `<b>bold</b> <i>text</i>`, want: "bold text"},
		{name: "javascript scheme", input: `click javascript:alert(1)`, want: "click alert(1)"},
		{name: "event handler", input: `<img src=x onerror="steal()">caption`, want: "caption"},
		{name: "unsafe data uri", input: `see data:text/html;base64,AAAA`, want: "see ;base64,AAAA"},
		{name: "safe data uri", input: `logo data:image/png;base64,AAAA`, want: "logo data:image/png;base64,AAAA"},
		{name: "prose with data label", input: "Big data: insights for families", want: "Big data: insights for families"},
		{name: "data label before year", input: "Updated data: 2025 figures", want: "Updated data: 2025 figures"},
		{name: "data word then colon", input: "data:insights and data :text/html", want: "data:insights and data :text/html"},
		{name: "whitespace", input: "  a \n\t b  ", want: "a b"},
		{name: "nested script", input: `<scr<script>x</script>ipt>alert(1)</script>`, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Input(tc.input))
		})
	}
}

func TestInputIsIdempotent(t *testing.T) {
	inputs := []string{
		`<<script>script>alert(1)<</script>/script>`,
		`java<b>script</b>:void(0)`,
		`<div onclick='x()'>hi</div>   there`,
		"data:image/png;base64,xyz and data:text/html,<p>x</p>",
		"plain text",
		"<<>>",
	}
	for _, in := range inputs {
		once := Input(in)
		assert.Equal(t, once, Input(once), "input %q", in)
	}
}

func TestHTMLKeepsWhitelistedTags(t *testing.T) {
	out := HTML(`<p style="color:red" onclick="x()">Hi <strong>there</strong><script>bad()</script><iframe src="x"></iframe></p>`)
	assert.Equal(t, "<p>Hi <strong>there</strong></p>", out)
}

func TestObjectPreservesStructure(t *testing.T) {
	in := map[string]any{
		"name":  "<b>Ann</b>",
		"count": 3.0,
		"tags":  []any{"<i>a</i>", map[string]any{"deep": "<script>x</script>ok"}},
	}
	out, ok := Object(in).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ann", out["name"])
	assert.Equal(t, 3.0, out["count"])
	tags := out["tags"].([]any)
	assert.Equal(t, "a", tags[0])
	assert.Equal(t, "ok", tags[1].(map[string]any)["deep"])
}

func TestEmail(t *testing.T) {
	got, ok := Email("USER@DOMAIN.COM")
	require.True(t, ok)
	assert.Equal(t, "user@domain.com", got)

	_, ok = Email("not-an-email")
	assert.False(t, ok)
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "+85291234567", Phone("+852 9123-4567"))
	assert.Equal(t, "21234567", Phone("(2) 123+4567"))
	assert.Equal(t, "", Phone("+"))
}

func TestNumber(t *testing.T) {
	got, ok := Number(" 42.5 ")
	require.True(t, ok)
	assert.Equal(t, 42.5, got)

	_, ok = Number("abc")
	assert.False(t, ok)
	_, ok = Number(math.Inf(1))
	assert.False(t, ok)
	_, ok = Number("NaN")
	assert.False(t, ok)
}

func TestBool(t *testing.T) {
	for _, v := range []any{"true", "1", "YES", true, 1.0} {
		assert.True(t, Bool(v), "%v", v)
	}
	for _, v := range []any{"false", "0", "no", "", nil, 2.0} {
		assert.False(t, Bool(v), "%v", v)
	}
}

func TestURL(t *testing.T) {
	_, ok := URL("javascript:alert(1)")
	assert.False(t, ok)

	got, ok := URL("https://example.com")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", got)

	_, ok = URL("ftp://example.com/file")
	assert.False(t, ok)
	_, ok = URL("/relative/path")
	assert.False(t, ok)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "etcpasswd", Filename("../../etc/passwd"))
	assert.Equal(t, "report.pdf", Filename("report.pdf"))
	assert.Equal(t, "ab", Filename("a\x00<b>"))

	long := Filename("ab" + strings.Repeat("é", 200))
	assert.True(t, utf8.ValidString(long))
	assert.LessOrEqual(t, len(long), 255)
	assert.Equal(t, 254, len(long))
}

func TestErrorMessageTruncatesOnRuneBoundary(t *testing.T) {
	out := ErrorMessage("a" + strings.Repeat("é", 150))
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "a"+strings.Repeat("é", 99)+"...", out)
}

func TestSQL(t *testing.T) {
	out := SQL(`Robert'); DROP TABLE students;--`)
	assert.NotContains(t, strings.ToUpper(out), "DROP")
	assert.NotContains(t, out, "'")
	assert.NotContains(t, out, ";")
	assert.NotContains(t, out, "--")
}

func TestErrorMessageScrubsSensitiveFragments(t *testing.T) {
	raw := "request to https://api.example.com/v1/x failed for admin@corp.io from 10.0.0.12:443 " +
		"reading /var/lib/app/secret.json with key sk-abcdefghijklmnop token abcdefghijklmnopqrstuvwxyz123456"
	out := ErrorMessage(raw)
	assert.NotContains(t, out, "api.example.com")
	assert.NotContains(t, out, "admin@corp.io")
	assert.NotContains(t, out, "10.0.0.12")
	assert.NotContains(t, out, "/var/lib")
	assert.NotContains(t, out, "sk-abcdefghijklmnop")
	assert.NotContains(t, out, "abcdefghijklmnopqrstuvwxyz123456")
	assert.Contains(t, out, "[url]")
	assert.Contains(t, out, "[email]")
}
