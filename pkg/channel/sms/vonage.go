package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const vonageAPIURL = "https://rest.nexmo.com/sms/json"

// vonageProvider sends messages through the Vonage (Nexmo) SMS API.
type vonageProvider struct {
	apiKey    string
	apiSecret string
	from      string
	client    *http.Client
}

func newVonageProvider(cfg Config) *vonageProvider {
	return &vonageProvider{
		apiKey:    cfg.VonageAPIKey,
		apiSecret: cfg.VonageAPISecret,
		from:      cfg.FromNumber,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *vonageProvider) Name() string {
	return "vonage"
}

type vonageRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	From      string `json:"from"`
	To        string `json:"to"`
	Text      string `json:"text"`
}

type vonageResponse struct {
	Messages []struct {
		MessageID    string `json:"message-id"`
		Status       string `json:"status"`
		ErrorText    string `json:"error-text"`
		MessagePrice string `json:"message-price"`
	} `json:"messages"`
}

func (p *vonageProvider) Send(ctx context.Context, to, body string) (ProviderResult, error) {
	if p.apiKey == "" || p.apiSecret == "" {
		return ProviderResult{}, fmt.Errorf("vonage credentials are not configured")
	}

	payload, err := json.Marshal(vonageRequest{
		APIKey:    p.apiKey,
		APISecret: p.apiSecret,
		From:      p.from,
		To:        to,
		Text:      body,
	})
	if err != nil {
		return ProviderResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vonageAPIURL, bytes.NewReader(payload))
	if err != nil {
		return ProviderResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var parsed vonageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ProviderResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return ProviderResult{}, fmt.Errorf("vonage returned no message status")
	}

	first := parsed.Messages[0]
	if first.Status != "0" {
		return ProviderResult{}, fmt.Errorf("vonage error status %s: %s", first.Status, first.ErrorText)
	}

	result := ProviderResult{MessageID: first.MessageID}
	if price, err := strconv.ParseFloat(first.MessagePrice, 64); err == nil {
		result.Cost = price
	}
	return result, nil
}
