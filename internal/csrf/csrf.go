package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TokenBytes  = 32
	TokenLength = TokenBytes * 2
	CookieName  = "csrf_token"
)

// ErrInvalidToken is the only error callers see, whatever the cause.
var ErrInvalidToken = errors.New("invalid token")

func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidFormat checks length and hex charset only. It is used where the
// issuing cookie is not available.
func ValidFormat(token string) bool {
	if len(token) != TokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// ValidateCookie compares the submitted token against the cookie copy in
// constant time.
func ValidateCookie(token, cookieToken string) error {
	if !ValidFormat(token) || !ValidFormat(cookieToken) {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(cookieToken)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// Signer issues HMAC tokens bound to a subject, optionally stamped with the
// issue time so they expire after maxAge.
type Signer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewSigner(secret string, maxAge time.Duration) *Signer {
	return &Signer{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Signer) Sign(subject string, timestamped bool) string {
	if !timestamped {
		return s.mac(subject)
	}
	ts := strconv.FormatInt(s.now().Unix(), 10)
	return s.mac(subject+":"+ts) + ":" + ts
}

func (s *Signer) Verify(subject, token string) error {
	macPart, tsPart, hasTS := strings.Cut(token, ":")
	if len(macPart) != sha256.Size*2 {
		return ErrInvalidToken
	}
	message := subject
	if hasTS {
		issued, err := strconv.ParseInt(tsPart, 10, 64)
		if err != nil {
			return ErrInvalidToken
		}
		age := s.now().Sub(time.Unix(issued, 0))
		if age < -time.Minute || (s.maxAge > 0 && age > s.maxAge) {
			return ErrInvalidToken
		}
		message = subject + ":" + tsPart
	}
	expected := s.mac(message)
	if !hmac.Equal([]byte(macPart), []byte(expected)) {
		return ErrInvalidToken
	}
	return nil
}

func (s *Signer) mac(message string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}
