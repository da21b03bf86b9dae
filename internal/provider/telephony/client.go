package telephony

import "context"

// NumberType mirrors the provider's inventory categories.
const (
	NumberTypeLocal    = "local"
	NumberTypeMobile   = "mobile"
	NumberTypeTollFree = "toll_free"
)

// SearchParams narrows an available-number search.
type SearchParams struct {
	CountryCode string
	AreaCode    string
	Contains    string
	NumberType  string
	Limit       int
}

// NumberCandidate is one purchasable number from a search.
type NumberCandidate struct {
	PhoneNumber  string       `json:"phone_number"`
	FriendlyName string       `json:"friendly_name"`
	CountryCode  string       `json:"country_code"`
	Capabilities Capabilities `json:"capabilities"`
}

type Capabilities struct {
	Voice bool `json:"voice"`
	SMS   bool `json:"sms"`
	MMS   bool `json:"mms"`
}

// PurchaseResult identifies a freshly purchased number on the provider side.
type PurchaseResult struct {
	ProviderNumberID string `json:"provider_number_id"`
	PhoneNumber      string `json:"phone_number"`
	FriendlyName     string `json:"friendly_name"`
}

// NumberTypePrice is the monthly price for one inventory category.
type NumberTypePrice struct {
	NumberType   string `json:"number_type"`
	BasePrice    string `json:"base_price"`
	CurrentPrice string `json:"current_price"`
}

// CountryPricing is the phone number price list for one country.
type CountryPricing struct {
	Country           string            `json:"country"`
	ISOCountry        string            `json:"iso_country"`
	PriceUnit         string            `json:"price_unit"`
	PhoneNumberPrices []NumberTypePrice `json:"phone_number_prices"`
}

// Address is a regulatory address registered with the telephony account.
type Address struct {
	SID          string `json:"sid"`
	FriendlyName string `json:"friendly_name"`
	CustomerName string `json:"customer_name"`
	Street       string `json:"street"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	ISOCountry   string `json:"iso_country"`
}

// Client is the telephony provider boundary used by the numbering lifecycle.
type Client interface {
	Search(ctx context.Context, params SearchParams) ([]NumberCandidate, error)
	Purchase(ctx context.Context, phoneNumber string) (*PurchaseResult, error)
	Release(ctx context.Context, providerNumberID string) error
	Pricing(ctx context.Context, countryCode string) (*CountryPricing, error)
	Addresses(ctx context.Context) ([]Address, error)
}
