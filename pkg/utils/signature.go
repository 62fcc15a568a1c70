package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignature returns the hex HMAC-SHA256 of payload under secret, the
// scheme the payment gateway uses for both payment verification and webhook
// deliveries.
func ComputeSignature(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the signature supplied after a subscription
// payment. The signed payload is "{payment_id}|{subscription_id}". Comparison
// is constant time; any mismatch fails closed.
func VerifyPaymentSignature(paymentID, subscriptionID, signature, secret string) bool {
	expected := ComputeSignature(fmt.Sprintf("%s|%s", paymentID, subscriptionID), secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw webhook body.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
