package csrf

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lowerHex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestGenerateTokenIsRandomLowerHex(t *testing.T) {
	first, err := GenerateToken()
	require.NoError(t, err)
	second, err := GenerateToken()
	require.NoError(t, err)

	assert.Regexp(t, lowerHex64, first)
	assert.Regexp(t, lowerHex64, second)
	assert.NotEqual(t, first, second)
}

func TestValidFormat(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	assert.True(t, ValidFormat(token))

	for _, bad := range []string{"", "abc", token[:63], token + "0", strings.Repeat("g", 64), strings.Repeat("a", 63) + " "} {
		assert.False(t, ValidFormat(bad), "%q", bad)
	}
}

func TestValidateCookie(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	other, err := GenerateToken()
	require.NoError(t, err)

	assert.NoError(t, ValidateCookie(token, token))
	assert.ErrorIs(t, ValidateCookie(token, other), ErrInvalidToken)
	assert.ErrorIs(t, ValidateCookie(token, ""), ErrInvalidToken)
	assert.ErrorIs(t, ValidateCookie("short", "short"), ErrInvalidToken)
}

func TestSignerTimestampedTokensExpire(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	signer := NewSigner(strings.Repeat("s", 32), 10*time.Minute).WithClock(func() time.Time { return now })

	token := signer.Sign("client-1", true)
	assert.NoError(t, signer.Verify("client-1", token))
	assert.ErrorIs(t, signer.Verify("client-2", token), ErrInvalidToken)

	now = now.Add(11 * time.Minute)
	assert.ErrorIs(t, signer.Verify("client-1", token), ErrInvalidToken)
}

func TestSignerUntimestampedAndTampered(t *testing.T) {
	signer := NewSigner(strings.Repeat("s", 32), time.Minute)
	token := signer.Sign("client-1", false)
	assert.NoError(t, signer.Verify("client-1", token))

	stamped := signer.Sign("client-1", true)
	mac, ts, _ := strings.Cut(stamped, ":")
	assert.ErrorIs(t, signer.Verify("client-1", mac+":"+ts+"1"), ErrInvalidToken)
	assert.ErrorIs(t, signer.Verify("client-1", mac+":nope"), ErrInvalidToken)
}
