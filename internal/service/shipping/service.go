// Package shipping quotes shipping rates and validates addresses through
// external collaborators, falling back to a manual table when they fail.
package shipping

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	MethodStandard = "standard"
	MethodExpress  = "express"
)

type QuoteRequest struct {
	FromPostcode string `json:"fromPostcode"`
	ToPostcode   string `json:"toPostcode"`
	WeightGrams  int64  `json:"weightGrams"`
	LengthCM     int64  `json:"lengthCm,omitempty"`
	WidthCM      int64  `json:"widthCm,omitempty"`
	HeightCM     int64  `json:"heightCm,omitempty"`
}

type Rate struct {
	Method  string          `json:"method"`
	Price   decimal.Decimal `json:"price"`
	EtaDays int             `json:"etaDays"`
}

type Quote struct {
	Rates []Rate `json:"rates"`
	// Manual is set when the rates come from the built-in table.
	Manual bool `json:"manual,omitempty"`
}

type AddressResult struct {
	IsValid     bool     `json:"isValid"`
	Suggestions []string `json:"suggestions"`
	Unverified  bool     `json:"unverified,omitempty"`
}

type RateProvider interface {
	Rates(ctx context.Context, req QuoteRequest) ([]Rate, error)
}

type AddressValidator interface {
	Validate(ctx context.Context, postcode, country string) (*AddressResult, error)
}

var (
	baseStandard = decimal.RequireFromString("4.95")
	perKilogram  = decimal.RequireFromString("0.50")
)

type Service struct {
	rates     RateProvider
	addresses AddressValidator
	logger    *zap.Logger
}

// New builds a Service. Either collaborator may be nil, in which case the
// fallback is always used.
func New(rates RateProvider, addresses AddressValidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{rates: rates, addresses: addresses, logger: logger}
}

// Quote never fails because of the rate provider; its errors are logged and
// the manual table is returned instead.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) Quote {
	if req.WeightGrams < 0 {
		req.WeightGrams = 0
	}
	if s.rates != nil {
		rates, err := s.rates.Rates(ctx, req)
		if err == nil && len(rates) > 0 {
			return Quote{Rates: rates}
		}
		if err != nil {
			s.logger.Warn("shipping rate provider failed, using manual rates",
				zap.String("to_postcode", req.ToPostcode),
				zap.Error(err),
			)
		}
	}
	return Quote{Rates: ManualRates(req.WeightGrams), Manual: true}
}

// ManualRates prices standard shipping at 4.95 plus 0.50 for every started
// kilogram above the first; express costs twice that.
func ManualRates(weightGrams int64) []Rate {
	var extraKG int64
	if weightGrams > 1000 {
		extraKG = (weightGrams - 1000 + 999) / 1000
	}
	standard := baseStandard.Add(perKilogram.Mul(decimal.NewFromInt(extraKG))).Round(2)
	return []Rate{
		{Method: MethodStandard, Price: standard, EtaDays: 5},
		{Method: MethodExpress, Price: standard.Mul(decimal.NewFromInt(2)).Round(2), EtaDays: 2},
	}
}

// ValidateAddress reports an unverified but valid address when the
// validator is unavailable.
func (s *Service) ValidateAddress(ctx context.Context, postcode, country string) AddressResult {
	postcode = strings.TrimSpace(postcode)
	country = strings.ToUpper(strings.TrimSpace(country))
	if s.addresses != nil {
		res, err := s.addresses.Validate(ctx, postcode, country)
		if err == nil && res != nil {
			return *res
		}
		if err != nil {
			s.logger.Warn("address validator failed, accepting address unverified",
				zap.String("country", country),
				zap.Error(err),
			)
		}
	}
	return AddressResult{IsValid: true, Suggestions: nil, Unverified: true}
}
