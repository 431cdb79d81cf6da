package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"
)

// Gateway is the push-payment client consumed by the payment service.
type Gateway interface {
	STKPush(ctx context.Context, phone string, amount float64, accountRef, description string) (*STKPushResponse, error)
}

// STKPushResponse is a successful push acknowledgment from Daraja.
// CheckoutRequestID is the tracking reference the asynchronous callback
// will later carry.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// APIError surfaces non-successful HTTP responses from Daraja.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mpesa api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Client talks to the Safaricom Daraja API.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	mockAPI        bool
	httpClient     *http.Client

	authMu      sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

// NewClient creates a new Daraja client. With mockAPI set, STKPush returns
// synthetic checkout references without touching the network.
func NewClient(baseURL, consumerKey, consumerSecret, shortCode, passkey, callbackURL string, mockAPI bool) *Client {
	return &Client{
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		shortCode:      shortCode,
		passkey:        passkey,
		callbackURL:    callbackURL,
		mockAPI:        mockAPI,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPush sends a push-payment request to the given phone. Exactly one
// provider request is made per call; the context bounds the whole exchange.
func (c *Client) STKPush(ctx context.Context, phone string, amount float64, accountRef, description string) (*STKPushResponse, error) {
	if c.mockAPI {
		now := time.Now().UnixNano()
		return &STKPushResponse{
			MerchantRequestID: fmt.Sprintf("mock-merchant-%d", now),
			CheckoutRequestID: fmt.Sprintf("ws_CO_%d", now),
			ResponseCode:      "0",
			CustomerMessage:   "Success. Request accepted for processing",
		}, nil
	}

	token, err := c.ensureAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire access token: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))

	payload := stkPushRequest{
		BusinessShortCode: c.shortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(math.Round(amount)),
		PartyA:            phone,
		PartyB:            c.shortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal stk push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build stk push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send stk push request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read stk push response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var pushResp STKPushResponse
	if err := json.Unmarshal(data, &pushResp); err != nil {
		return nil, fmt.Errorf("parse stk push response: %w", err)
	}
	if pushResp.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push rejected: code=%s desc=%s", pushResp.ResponseCode, pushResp.ResponseDescription)
	}
	if pushResp.CheckoutRequestID == "" {
		return nil, errors.New("stk push response missing CheckoutRequestID")
	}

	return &pushResp, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// ensureAccessToken returns a cached OAuth token, refreshing it shortly
// before expiry. Daraja tokens last an hour; a 30 second margin avoids
// using a token that dies mid-request.
func (c *Client) ensureAccessToken(ctx context.Context) (string, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if c.cachedToken != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.cachedToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}

	ttl := time.Hour
	if secs, err := time.ParseDuration(tok.ExpiresIn + "s"); err == nil && secs > 0 {
		ttl = secs
	}
	c.cachedToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)
	return c.cachedToken, nil
}
