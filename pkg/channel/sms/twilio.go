package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// twilioProvider sends messages through the Twilio REST API.
type twilioProvider struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

func newTwilioProvider(cfg Config) *twilioProvider {
	return &twilioProvider{
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		from:       cfg.FromNumber,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *twilioProvider) Name() string {
	return "twilio"
}

type twilioResponse struct {
	SID     string  `json:"sid"`
	Status  string  `json:"status"`
	Price   *string `json:"price"`
	Message string  `json:"message"`
	Code    int     `json:"code"`
}

func (p *twilioProvider) Send(ctx context.Context, to, body string) (ProviderResult, error) {
	if p.accountSID == "" || p.authToken == "" {
		return ProviderResult{}, fmt.Errorf("twilio credentials are not configured")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", p.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPIBase, p.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return ProviderResult{}, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var parsed twilioResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ProviderResult{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return ProviderResult{}, fmt.Errorf("twilio error %d: %s", parsed.Code, parsed.Message)
	}

	result := ProviderResult{MessageID: parsed.SID}
	if parsed.Price != nil {
		if price, err := strconv.ParseFloat(*parsed.Price, 64); err == nil {
			// Twilio reports prices as negative amounts.
			if price < 0 {
				price = -price
			}
			result.Cost = price
		}
	}
	return result, nil
}
