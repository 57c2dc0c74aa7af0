package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var (
	ErrSignatureMissing = errors.New("square: signature header missing")
	ErrSignatureInvalid = errors.New("square: signature invalid")

	// ErrNotificationURLMismatch means the payload was signed for a different
	// notification URL than the one configured here. The signature itself is
	// genuine, so this points at configuration, not at a forged request.
	ErrNotificationURLMismatch = errors.New("square: signature valid for request URL but not configured notification url")
)

// Verifier checks webhook signatures: base64(HMAC-SHA256(key, url+body))
// where url is the notification URL registered in the developer portal.
type Verifier struct {
	SignatureKey    string
	NotificationURL string
}

func (v Verifier) Verify(body []byte, signature string, requestURL string) error {
	if signature == "" {
		return ErrSignatureMissing
	}
	if v.match(v.NotificationURL, body, signature) {
		return nil
	}
	if requestURL != "" && requestURL != v.NotificationURL && v.match(requestURL, body, signature) {
		return ErrNotificationURLMismatch
	}
	return ErrSignatureInvalid
}

func (v Verifier) match(url string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(v.SignatureKey))
	mac.Write([]byte(url))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the signature Square would attach for the given URL and body.
// Used by tests and local webhook tooling.
func Sign(key, url string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(url))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
