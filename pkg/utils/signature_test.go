package utils

import (
	"testing"
)

func TestComputeSignatureKnownVector(t *testing.T) {
	// RFC-style reference vector for HMAC-SHA256.
	got := ComputeSignature("The quick brown fox jumps over the lazy dog", "key")
	want := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got != want {
		t.Errorf("ComputeSignature = %s, want %s", got, want)
	}
}

func TestVerifyPaymentSignature(t *testing.T) {
	secret := "test_webhook_secret"
	paymentID := "pay_MkWvQ4rZkAbc12"
	subscriptionID := "sub_MkWvR7pXyDef34"

	valid := ComputeSignature(paymentID+"|"+subscriptionID, secret)

	if !VerifyPaymentSignature(paymentID, subscriptionID, valid, secret) {
		t.Fatal("expected valid signature to verify")
	}
	if VerifyPaymentSignature(paymentID, subscriptionID, valid, "other_secret") {
		t.Error("expected verification to fail under a different secret")
	}
	if VerifyPaymentSignature("pay_other", subscriptionID, valid, secret) {
		t.Error("expected verification to fail for a different payment id")
	}
	if VerifyPaymentSignature(paymentID, subscriptionID, "", secret) {
		t.Error("expected empty signature to fail")
	}
}

func TestVerifyPaymentSignatureRejectsMutations(t *testing.T) {
	secret := "test_webhook_secret"
	valid := ComputeSignature("pay_1|sub_1", secret)

	// Flipping any single character must break verification.
	for i := 0; i < len(valid); i++ {
		mutated := []byte(valid)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if VerifyPaymentSignature("pay_1", "sub_1", string(mutated), secret) {
			t.Errorf("mutated signature at index %d still verified", i)
		}
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"subscription.charged","payload":{}}`)

	valid := ComputeSignature(string(body), secret)

	if !VerifyWebhookSignature(body, valid, secret) {
		t.Fatal("expected valid webhook signature to verify")
	}
	if VerifyWebhookSignature(append(body, ' '), valid, secret) {
		t.Error("expected verification to fail after body change")
	}
	if VerifyWebhookSignature(body, valid, "wrong") {
		t.Error("expected verification to fail under a different secret")
	}
}
