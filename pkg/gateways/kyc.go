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

// KYCClient wraps the document verification provider: ID verification by
// number + holder name, plus the DigiLocker redirect flow.
type KYCClient struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewKYCClient() *KYCClient {
	baseURL := os.Getenv("KYC_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.verification.example.com/v1"
	}
	return &KYCClient{
		APIKey:  os.Getenv("KYC_API_KEY"),
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// DocumentKind enumerates the verifiable identity/vehicle documents.
type DocumentKind string

const (
	DocumentAadhaar DocumentKind = "aadhaar"
	DocumentPAN     DocumentKind = "pan"
	DocumentRC      DocumentKind = "rc"
	DocumentDL      DocumentKind = "dl"
)

var kycEndpoints = map[DocumentKind]string{
	DocumentAadhaar: "/aadhaar/verify",
	DocumentPAN:     "/pan/verify",
	DocumentRC:      "/rc/verify",
	DocumentDL:      "/dl/verify",
}

// VerificationResult is the provider's verdict for a document check.
type VerificationResult struct {
	Verified   bool   `json:"verified"`
	HolderName string `json:"holder_name"`
	Message    string `json:"message"`
}

func (c *KYCClient) post(path string, payload, out interface{}) error {
	if c.APIKey == "" {
		return fmt.Errorf("kyc gateway API key not set")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("kyc api error: %s - %s", resp.Status, string(body))
	}

	return json.Unmarshal(body, out)
}

// VerifyDocument checks a document number against the registered holder name.
func (c *KYCClient) VerifyDocument(kind DocumentKind, number, holderName string) (*VerificationResult, error) {
	endpoint, ok := kycEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported document kind: %s", kind)
	}

	payload := map[string]string{
		"document_number": number,
		"holder_name":     holderName,
	}
	var result VerificationResult
	if err := c.post(endpoint, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DigiLockerSession is the redirect handle for the OAuth-style flow.
type DigiLockerSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// InitializeDigiLocker starts the consent flow; the caller redirects the
// vendor to RedirectURL and the provider calls back with the session id.
func (c *KYCClient) InitializeDigiLocker(vendorRef, callbackURL string) (*DigiLockerSession, error) {
	payload := map[string]string{
		"reference_id": vendorRef,
		"callback_url": callbackURL,
	}
	var session DigiLockerSession
	if err := c.post("/digilocker/initialize", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DigiLockerDocuments is the set of documents pulled after consent.
type DigiLockerDocuments struct {
	AadhaarVerified bool   `json:"aadhaar_verified"`
	PanVerified     bool   `json:"pan_verified"`
	DlVerified      bool   `json:"dl_verified"`
	Message         string `json:"message"`
}

// FetchDigiLockerDocuments downloads and verifies documents for a completed
// consent session.
func (c *KYCClient) FetchDigiLockerDocuments(sessionID string) (*DigiLockerDocuments, error) {
	payload := map[string]string{"session_id": sessionID}
	var docs DigiLockerDocuments
	if err := c.post("/digilocker/download", payload, &docs); err != nil {
		return nil, err
	}
	return &docs, nil
}
