package gateway

import (
	"strings"
	"testing"
)

func TestHashDataCanonicalForm(t *testing.T) {
	params := map[string]string{
		"txnRef":         "FL-1",
		"amount":         "5000000",
		"orderInfo":      "Thanh toan don hang 42",
		"empty":          "",
		SecureHashParam:  "deadbeef",
		"secureHashType": "HmacSHA512",
	}

	got := HashData(params)
	want := "amount=5000000&orderInfo=Thanh+toan+don+hang+42&txnRef=FL-1"
	if got != want {
		t.Fatalf("unexpected hash data:\n got %q\nwant %q", got, want)
	}
}

func TestHashDataKeyOrderIndependent(t *testing.T) {
	// Maps iterate in random order; repeated calls must canonicalize identically.
	params := map[string]string{
		"version": "2.1.0", "command": "pay", "tmnCode": "FARM01",
		"amount": "100000", "txnRef": "FL-2", "currCode": "VND",
	}
	first := HashData(params)
	for i := 0; i < 10; i++ {
		if got := HashData(params); got != first {
			t.Fatalf("hash data not deterministic: %q vs %q", got, first)
		}
	}
	if !strings.HasPrefix(first, "amount=") {
		t.Fatalf("expected lexicographic ordering, got %q", first)
	}
}

func TestSignAndVerify(t *testing.T) {
	secret := "test-secret"
	params := map[string]string{
		"txnRef": "FL-3",
		"amount": "300000000",
	}

	sig := Sign(secret, params)
	if len(sig) != 128 {
		t.Fatalf("expected 128 hex chars for sha512, got %d", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Fatalf("expected lowercase hex digest")
	}

	if !Verify(secret, params, sig) {
		t.Fatal("expected signature to verify")
	}
	if !Verify(secret, params, strings.ToUpper(sig)) {
		t.Fatal("expected uppercase digest to verify")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	secret := "test-secret"
	params := map[string]string{
		"txnRef": "FL-4",
		"amount": "300000000",
	}
	sig := Sign(secret, params)

	tampered := map[string]string{
		"txnRef": "FL-4",
		"amount": "100",
	}
	if Verify(secret, tampered, sig) {
		t.Fatal("expected amount tampering to fail verification")
	}

	flipped := []byte(sig)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	if Verify(secret, params, string(flipped)) {
		t.Fatal("expected flipped digest to fail verification")
	}

	if Verify(secret, params, "") {
		t.Fatal("expected empty hash to fail verification")
	}

	if Verify("other-secret", params, sig) {
		t.Fatal("expected wrong secret to fail verification")
	}
}

func TestVerifyIgnoresHashParams(t *testing.T) {
	secret := "test-secret"
	params := map[string]string{
		"txnRef": "FL-5",
		"amount": "500000",
	}
	sig := Sign(secret, params)

	// Callback params arrive with the signature fields included.
	withHash := map[string]string{
		"txnRef":         "FL-5",
		"amount":         "500000",
		SecureHashParam:  sig,
		"secureHashType": "HmacSHA512",
	}
	if !Verify(secret, withHash, sig) {
		t.Fatal("expected verification to skip signature params")
	}
}
