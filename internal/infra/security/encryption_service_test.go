//go:build !integration

package security

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewEncryptionService_KeyLength(t *testing.T) {
	for _, k := range []string{"", "short", strings.Repeat("x", 33)} {
		if _, err := NewEncryptionService(k); err == nil {
			t.Errorf("expected an error for a %d byte key", len(k))
		}
	}
}

func TestEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewEncryptionService(testKey)
	if err != nil {
		t.Fatal(err)
	}
	ct, err := svc.Encrypt("gateway-secret", "method-1")
	if err != nil {
		t.Fatal(err)
	}
	pt, err := svc.Decrypt(ct, "method-1")
	if err != nil || pt != "gateway-secret" {
		t.Fatalf("round trip: got (%q, %v)", pt, err)
	}

	// nonces are random
	again, _ := svc.Encrypt("gateway-secret", "method-1")
	if again == ct {
		t.Error("two encryptions of the same value must differ")
	}
}

func TestEncryptionService_RejectsWrongAAD(t *testing.T) {
	svc, _ := NewEncryptionService(testKey)
	ct, _ := svc.Encrypt("s3cret", "method-1")

	if _, err := svc.Decrypt(ct, "method-2"); !errors.Is(err, ErrCiphertext) {
		t.Errorf("want ErrCiphertext, got %v", err)
	}
	if _, err := svc.Decrypt("not base64!", "method-1"); !errors.Is(err, ErrCiphertext) {
		t.Errorf("want ErrCiphertext, got %v", err)
	}
}

func TestEncryptionService_SealOpen(t *testing.T) {
	svc, _ := NewEncryptionService(testKey)

	sealed, err := svc.Seal("pw", "m")
	if err != nil || !strings.HasPrefix(sealed, sealedPrefix) {
		t.Fatalf("Seal: got (%q, %v)", sealed, err)
	}
	if got, err := svc.Open(sealed, "m"); err != nil || got != "pw" {
		t.Errorf("Open: got (%q, %v)", got, err)
	}

	if sealed, _ := svc.Seal("", "m"); sealed != "" {
		t.Errorf("empty values stay empty, got %q", sealed)
	}
	if got, _ := svc.Open("legacy-plain", "m"); got != "legacy-plain" {
		t.Errorf("unprefixed values pass through, got %q", got)
	}
}
