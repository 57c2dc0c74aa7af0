package square

import (
	"errors"
	"testing"
)

func TestVerify(t *testing.T) {
	const (
		key = "signature-key"
		url = "https://example.com/api/webhook"
	)
	body := []byte(`{"type":"payment.updated"}`)
	v := Verifier{SignatureKey: key, NotificationURL: url}

	tests := []struct {
		name       string
		signature  string
		requestURL string
		want       error
	}{
		{
			name:      "valid",
			signature: Sign(key, url, body),
			want:      nil,
		},
		{
			name: "missing",
			want: ErrSignatureMissing,
		},
		{
			name:      "garbage",
			signature: "bm90IGEgc2lnbmF0dXJl",
			want:      ErrSignatureInvalid,
		},
		{
			name:      "wrong key",
			signature: Sign("other-key", url, body),
			want:      ErrSignatureInvalid,
		},
		{
			name:       "notification url mismatch",
			signature:  Sign(key, "https://actual.example.com/api/webhook", body),
			requestURL: "https://actual.example.com/api/webhook",
			want:       ErrNotificationURLMismatch,
		},
		{
			name:       "mismatch probe does not mask bad signature",
			signature:  Sign("other-key", "https://actual.example.com/api/webhook", body),
			requestURL: "https://actual.example.com/api/webhook",
			want:       ErrSignatureInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(body, tt.signature, tt.requestURL)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifyBodyTamper(t *testing.T) {
	const (
		key = "signature-key"
		url = "https://example.com/api/webhook"
	)
	v := Verifier{SignatureKey: key, NotificationURL: url}
	sig := Sign(key, url, []byte(`{"amount":100}`))

	if err := v.Verify([]byte(`{"amount":999}`), sig, ""); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for tampered body, got %v", err)
	}
}
