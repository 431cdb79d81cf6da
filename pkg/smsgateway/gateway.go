package smsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DeliveryResult reports the outcome of one send attempt.
type DeliveryResult struct {
	Success   bool
	MessageID string
	Status    string
}

// Gateway sends a message containing purchased content to a phone number.
type Gateway interface {
	SendSMS(ctx context.Context, msisdn, message string) (*DeliveryResult, error)
}

// AfricasTalkingGateway sends SMS through the Africa's Talking messaging API.
type AfricasTalkingGateway struct {
	baseURL    string
	username   string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

// NewAfricasTalkingGateway creates a new AfricasTalkingGateway
func NewAfricasTalkingGateway(baseURL, username, apiKey, senderID string) *AfricasTalkingGateway {
	return &AfricasTalkingGateway{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		apiKey:   apiKey,
		senderID: senderID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type messagingResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			Number    string `json:"number"`
			Status    string `json:"status"`
			MessageID string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// SendSMS sends an SMS to a single recipient. The recipient status in the
// response decides success, not the HTTP status alone.
func (g *AfricasTalkingGateway) SendSMS(ctx context.Context, msisdn, message string) (*DeliveryResult, error) {
	form := url.Values{}
	form.Set("username", g.username)
	form.Set("to", "+"+msisdn)
	form.Set("message", message)
	if g.senderID != "" {
		form.Set("from", g.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sms response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("sms request failed with status %d: %s", resp.StatusCode, string(data))
	}

	var parsed messagingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse sms response: %w", err)
	}
	if len(parsed.SMSMessageData.Recipients) == 0 {
		return nil, errors.New("sms response contained no recipients")
	}

	recipient := parsed.SMSMessageData.Recipients[0]
	return &DeliveryResult{
		Success:   recipient.Status == "Success",
		MessageID: recipient.MessageID,
		Status:    recipient.Status,
	}, nil
}

// MockGateway is an SMS gateway for local development and tests.
type MockGateway struct{}

// NewMockGateway creates a new MockGateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// SendSMS simulates a successful delivery.
func (g *MockGateway) SendSMS(ctx context.Context, msisdn, message string) (*DeliveryResult, error) {
	return &DeliveryResult{
		Success:   true,
		MessageID: fmt.Sprintf("MOCK-MSG-%d", time.Now().UnixNano()),
		Status:    "Success",
	}, nil
}
