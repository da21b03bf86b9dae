package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/voxcalls/backend/internal/provider"
)

// TwilioConfig carries the account credentials and endpoints for the Twilio
// REST API. AddressSID is only needed for countries that require a regulatory
// address on purchase (e.g. Australia).
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	AddressSID     string
	APIBaseURL     string
	PricingBaseURL string
}

type TwilioClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	cfg        TwilioConfig
}

func NewTwilioClient(logger *slog.Logger, cfg TwilioConfig, httpClient *http.Client) *TwilioClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.twilio.com/2010-04-01"
	}
	if cfg.PricingBaseURL == "" {
		cfg.PricingBaseURL = "https://pricing.twilio.com/v1"
	}
	return &TwilioClient{
		logger:     logger.With("provider", "twilio"),
		httpClient: httpClient,
		cfg:        cfg,
	}
}

type twilioAvailableNumber struct {
	PhoneNumber  string          `json:"phone_number"`
	FriendlyName string          `json:"friendly_name"`
	Capabilities map[string]bool `json:"capabilities"`
}

type twilioSearchResponse struct {
	AvailablePhoneNumbers []twilioAvailableNumber `json:"available_phone_numbers"`
}

type twilioIncomingNumber struct {
	SID          string `json:"sid"`
	PhoneNumber  string `json:"phone_number"`
	FriendlyName string `json:"friendly_name"`
}

type twilioAddressList struct {
	Addresses []twilioAddress `json:"addresses"`
}

type twilioAddress struct {
	SID          string `json:"sid"`
	FriendlyName string `json:"friendly_name"`
	CustomerName string `json:"customer_name"`
	Street       string `json:"street"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	ISOCountry   string `json:"iso_country"`
}

type twilioPricingResponse struct {
	Country           string `json:"country"`
	ISOCountry        string `json:"iso_country"`
	PriceUnit         string `json:"price_unit"`
	PhoneNumberPrices []struct {
		NumberType   string `json:"number_type"`
		BasePrice    string `json:"base_price"`
		CurrentPrice string `json:"current_price"`
	} `json:"phone_number_prices"`
}

func (c *TwilioClient) Search(ctx context.Context, params SearchParams) ([]NumberCandidate, error) {
	country := params.CountryCode
	if country == "" {
		country = "US"
	}

	var category string
	switch params.NumberType {
	case NumberTypeMobile:
		category = "Mobile"
	case NumberTypeTollFree:
		category = "TollFree"
	default:
		category = "Local"
	}

	q := url.Values{}
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	q.Set("PageSize", strconv.Itoa(limit))
	if params.AreaCode != "" {
		q.Set("AreaCode", params.AreaCode)
	}
	if params.Contains != "" {
		q.Set("Contains", params.Contains)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/AvailablePhoneNumbers/%s/%s.json?%s",
		c.cfg.APIBaseURL, c.cfg.AccountSID, country, category, q.Encode())

	var resp twilioSearchResponse
	if err := c.doJSON(ctx, http.MethodGet, "search", endpoint, nil, &resp); err != nil {
		return nil, err
	}

	candidates := make([]NumberCandidate, 0, len(resp.AvailablePhoneNumbers))
	for _, n := range resp.AvailablePhoneNumbers {
		candidates = append(candidates, NumberCandidate{
			PhoneNumber:  n.PhoneNumber,
			FriendlyName: n.FriendlyName,
			CountryCode:  country,
			Capabilities: Capabilities{
				Voice: n.Capabilities["voice"],
				SMS:   n.Capabilities["SMS"],
				MMS:   n.Capabilities["MMS"],
			},
		})
	}
	return candidates, nil
}

func (c *TwilioClient) Purchase(ctx context.Context, phoneNumber string) (*PurchaseResult, error) {
	c.logger.InfoContext(ctx, "Purchasing number from Twilio", "phone_number", phoneNumber)

	form := url.Values{}
	form.Set("PhoneNumber", phoneNumber)
	if c.cfg.AddressSID != "" {
		form.Set("AddressSid", c.cfg.AddressSID)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers.json", c.cfg.APIBaseURL, c.cfg.AccountSID)

	var resp twilioIncomingNumber
	if err := c.doForm(ctx, "purchase", endpoint, form, &resp); err != nil {
		return nil, err
	}

	return &PurchaseResult{
		ProviderNumberID: resp.SID,
		PhoneNumber:      resp.PhoneNumber,
		FriendlyName:     resp.FriendlyName,
	}, nil
}

func (c *TwilioClient) Release(ctx context.Context, providerNumberID string) error {
	c.logger.InfoContext(ctx, "Releasing number at Twilio", "provider_number_id", providerNumberID)
	endpoint := fmt.Sprintf("%s/Accounts/%s/IncomingPhoneNumbers/%s.json", c.cfg.APIBaseURL, c.cfg.AccountSID, providerNumberID)
	return c.doJSON(ctx, http.MethodDelete, "release", endpoint, nil, nil)
}

func (c *TwilioClient) Pricing(ctx context.Context, countryCode string) (*CountryPricing, error) {
	endpoint := fmt.Sprintf("%s/PhoneNumbers/Countries/%s", c.cfg.PricingBaseURL, countryCode)

	var resp twilioPricingResponse
	if err := c.doJSON(ctx, http.MethodGet, "pricing", endpoint, nil, &resp); err != nil {
		return nil, err
	}

	pricing := &CountryPricing{
		Country:    resp.Country,
		ISOCountry: resp.ISOCountry,
		PriceUnit:  resp.PriceUnit,
	}
	for _, p := range resp.PhoneNumberPrices {
		pricing.PhoneNumberPrices = append(pricing.PhoneNumberPrices, NumberTypePrice{
			NumberType:   p.NumberType,
			BasePrice:    p.BasePrice,
			CurrentPrice: p.CurrentPrice,
		})
	}
	return pricing, nil
}

func (c *TwilioClient) Addresses(ctx context.Context) ([]Address, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Addresses.json", c.cfg.APIBaseURL, c.cfg.AccountSID)

	var resp twilioAddressList
	if err := c.doJSON(ctx, http.MethodGet, "addresses", endpoint, nil, &resp); err != nil {
		return nil, err
	}

	addresses := make([]Address, 0, len(resp.Addresses))
	for _, a := range resp.Addresses {
		addresses = append(addresses, Address{
			SID:          a.SID,
			FriendlyName: a.FriendlyName,
			CustomerName: a.CustomerName,
			Street:       a.Street,
			City:         a.City,
			Region:       a.Region,
			PostalCode:   a.PostalCode,
			ISOCountry:   a.ISOCountry,
		})
	}
	return addresses, nil
}

func (c *TwilioClient) doForm(ctx context.Context, operation, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create Twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, operation, out)
}

func (c *TwilioClient) doJSON(ctx context.Context, method, operation, endpoint string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create Twilio request: %w", err)
	}
	return c.do(req, operation, out)
}

func (c *TwilioClient) do(req *http.Request, operation string, out interface{}) error {
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Twilio: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Twilio response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.ErrorContext(req.Context(), "Twilio API request failed",
			"operation", operation, "status_code", resp.StatusCode, "body", string(respBody))
		return &provider.Error{
			Provider:   "twilio",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode Twilio %s response: %w", operation, err)
		}
	}
	return nil
}
