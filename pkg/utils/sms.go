package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

var smsClient = &http.Client{Timeout: 10 * time.Second}

func sendSMS(message string, recipients []string) error {
	apiKey := os.Getenv("SMS_API_KEY")
	senderID := os.Getenv("SMS_SENDER_ID")

	if apiKey == "" {
		return fmt.Errorf("sms gateway API key not set")
	}

	baseURL := os.Getenv("SMS_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "https://api.msg91.com/api/sendhttp.php"
	}

	// Prepare the form data
	data := url.Values{}
	data.Set("sender", senderID)
	data.Set("mobiles", strings.Join(recipients, ","))
	data.Set("message", message)
	data.Set("route", "4")

	req, err := http.NewRequest("POST", baseURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("authkey", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := smsClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send SMS: status code %d", resp.StatusCode)
	}

	if Logger != nil {
		Logger.Info("sms sent", zap.Int("recipients", len(recipients)))
	}
	return nil
}

// SendOTPSMS delivers a one-time password to a contact number.
func SendOTPSMS(contactNumber, otp, purpose string) error {
	msg := fmt.Sprintf("%s is your TruckMitra verification code for %s. Valid for 15 minutes. Do not share it with anyone.", otp, purpose)
	return sendSMS(msg, []string{contactNumber})
}

// SendBookingOfferSMS notifies a vendor of a new dispatch offer.
func SendBookingOfferSMS(vendorPhone, pickupAddr string, expiryMins int) error {
	msg := fmt.Sprintf("New load near %s is waiting for you. Open the app to accept within %d minutes.", pickupAddr, expiryMins)
	return sendSMS(msg, []string{vendorPhone})
}

// SendBookingConfirmedSMS notifies the client that a vendor accepted.
func SendBookingConfirmedSMS(clientPhone, vendorName, vehicleNumber string) error {
	msg := fmt.Sprintf("Your booking is confirmed. %s (vehicle %s) is on the way to the pickup point.", vendorName, vehicleNumber)
	return sendSMS(msg, []string{clientPhone})
}

// SendBookingCancelledSMS notifies the counterparty of a cancellation.
func SendBookingCancelledSMS(phone, reason string) error {
	msg := "Your booking has been cancelled."
	if reason != "" {
		msg = fmt.Sprintf("Your booking has been cancelled: %s", reason)
	}
	return sendSMS(msg, []string{phone})
}
