package mailing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OutboundMessage is one fully-rendered email ready for delivery. The HTML
// body is expected to already carry its tracking rewrite.
type OutboundMessage struct {
	From      string
	FromName  string
	To        string
	Subject   string
	HTMLBody  string
	PlainBody string
}

// SendResult reports what the provider did with one message.
type SendResult struct {
	Accepted  bool
	MessageID string
	Reason    string
	SentAt    time.Time
}

// Gateway is the outbound mail provider. The campaign-sending layer calls
// it once per recipient; implementations decide batching and retries.
type Gateway interface {
	SendEmail(ctx context.Context, msg OutboundMessage) (*SendResult, error)
}

// HTTPGateway delivers through a JSON transmission API.
type HTTPGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewHTTPGateway creates a gateway against the given API origin.
func NewHTTPGateway(apiKey, baseURL string) *HTTPGateway {
	return &HTTPGateway{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *HTTPGateway) SendEmail(ctx context.Context, msg OutboundMessage) (*SendResult, error) {
	transmission := map[string]interface{}{
		"recipients": []map[string]interface{}{
			{"address": map[string]string{"email": msg.To}},
		},
		"content": map[string]interface{}{
			"from": map[string]string{
				"email": msg.From,
				"name":  msg.FromName,
			},
			"subject": msg.Subject,
			"html":    msg.HTMLBody,
			"text":    msg.PlainBody,
		},
		"options": map[string]interface{}{
			// Provider-side tracking would double count; we do our own.
			"open_tracking":  false,
			"click_tracking": false,
		},
	}

	body, _ := json.Marshal(transmission)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transmissions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mail gateway: %w", err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		Results struct {
			TotalAcceptedRecipients int    `json:"total_accepted_recipients"`
			ID                      string `json:"id"`
		} `json:"results"`
		Errors []struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&apiResp)

	if resp.StatusCode != http.StatusOK || len(apiResp.Errors) > 0 {
		reason := "gateway error"
		if len(apiResp.Errors) > 0 {
			reason = apiResp.Errors[0].Message
		}
		return &SendResult{Accepted: false, Reason: reason}, nil
	}

	return &SendResult{
		Accepted:  true,
		MessageID: apiResp.Results.ID,
		SentAt:    time.Now().UTC(),
	}, nil
}
