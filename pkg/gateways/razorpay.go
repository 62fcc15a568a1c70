package gateways

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// RazorpayClient talks to the payment gateway REST API with basic auth.
type RazorpayClient struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	client    *http.Client
}

func NewRazorpayClient() *RazorpayClient {
	baseURL := os.Getenv("RAZORPAY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	return &RazorpayClient{
		KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		BaseURL:   baseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *RazorpayClient) do(method, path string, payload interface{}, out interface{}) error {
	if c.KeyID == "" || c.KeySecret == "" {
		return fmt.Errorf("razorpay credentials not configured")
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("razorpay api error: %s - %s", resp.Status, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode razorpay response: %v", err)
		}
	}
	return nil
}

// Customer is the gateway customer record.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

// CreateCustomer registers the account with the gateway so subscriptions can
// be charged against it.
func (c *RazorpayClient) CreateCustomer(name, contact, email string) (*Customer, error) {
	payload := map[string]interface{}{
		"name":          name,
		"contact":       contact,
		"email":         email,
		"fail_existing": "0",
	}
	var customer Customer
	if err := c.do("POST", "/customers", payload, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// Subscription is the gateway subscription record.
type Subscription struct {
	ID         string `json:"id"`
	PlanID     string `json:"plan_id"`
	Status     string `json:"status"`
	CustomerID string `json:"customer_id"`
	ShortURL   string `json:"short_url"`
	TotalCount int    `json:"total_count"`
	PaidCount  int    `json:"paid_count"`
	ChargeAt   int64  `json:"charge_at"`
	EndAt      int64  `json:"end_at"`
}

// CreateSubscription opens a recurring billing agreement on a gateway plan.
// firstChargeAmount, when positive, is attached as an upfront add-on so the
// first invoice includes it.
func (c *RazorpayClient) CreateSubscription(gatewayPlanID, customerID string, totalCycles int, firstChargeAmount int64, currency string) (*Subscription, error) {
	payload := map[string]interface{}{
		"plan_id":         gatewayPlanID,
		"customer_id":     customerID,
		"total_count":     totalCycles,
		"customer_notify": 1,
	}
	if firstChargeAmount > 0 {
		payload["addons"] = []map[string]interface{}{
			{
				"item": map[string]interface{}{
					"name":     "First charge",
					"amount":   firstChargeAmount,
					"currency": currency,
				},
			},
		}
	}
	var sub Subscription
	if err := c.do("POST", "/subscriptions", payload, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription stops the agreement at the gateway. cycleEnd keeps it
// alive until the current billing period lapses.
func (c *RazorpayClient) CancelSubscription(subscriptionID string, cycleEnd bool) (*Subscription, error) {
	payload := map[string]interface{}{
		"cancel_at_cycle_end": 0,
	}
	if cycleEnd {
		payload["cancel_at_cycle_end"] = 1
	}
	var sub Subscription
	if err := c.do("POST", "/subscriptions/"+subscriptionID+"/cancel", payload, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// PaymentInfo is the gateway view of a payment.
type PaymentInfo struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id"`
	Method   string `json:"method"`
	Captured bool   `json:"captured"`
}

// FetchPayment pulls a payment record from the gateway.
func (c *RazorpayClient) FetchPayment(paymentID string) (*PaymentInfo, error) {
	var payment PaymentInfo
	if err := c.do("GET", "/payments/"+paymentID, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}
