package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storefront/internal/domain"
)

type failingProvider struct{}

func (failingProvider) Rates(context.Context, QuoteRequest) ([]Rate, error) {
	return nil, errors.New("connection refused")
}

func (failingProvider) Validate(context.Context, string, string) (*AddressResult, error) {
	return nil, errors.New("connection refused")
}

func TestManualRates(t *testing.T) {
	cases := []struct {
		grams    int64
		standard string
		express  string
	}{
		{0, "4.95", "9.90"},
		{1000, "4.95", "9.90"},
		{1001, "5.45", "10.90"},
		{2500, "5.95", "11.90"},
		{3000, "5.95", "11.90"},
	}
	for _, tc := range cases {
		rates := ManualRates(tc.grams)
		require.Len(t, rates, 2)
		assert.Equal(t, MethodStandard, rates[0].Method)
		assert.Equal(t, tc.standard, rates[0].Price.StringFixed(2), "standard at %dg", tc.grams)
		assert.Equal(t, 5, rates[0].EtaDays)
		assert.Equal(t, MethodExpress, rates[1].Method)
		assert.Equal(t, tc.express, rates[1].Price.StringFixed(2), "express at %dg", tc.grams)
		assert.Equal(t, 2, rates[1].EtaDays)
	}
}

func TestQuoteFallsBackAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := New(failingProvider{}, failingProvider{}, zap.New(core))

	q := svc.Quote(context.Background(), QuoteRequest{ToPostcode: "10115", WeightGrams: 1500})
	assert.True(t, q.Manual)
	assert.Equal(t, "5.45", q.Rates[0].Price.StringFixed(2))

	addr := svc.ValidateAddress(context.Background(), "10115", "de")
	assert.Equal(t, AddressResult{IsValid: true, Unverified: true}, addr)
	assert.Equal(t, 2, logs.Len())
}

func TestQuoteWithoutCollaborators(t *testing.T) {
	svc := New(nil, nil, nil)
	q := svc.Quote(context.Background(), QuoteRequest{WeightGrams: -5})
	assert.True(t, q.Manual)
	assert.Equal(t, "4.95", q.Rates[0].Price.StringFixed(2))
	assert.True(t, svc.ValidateAddress(context.Background(), "x", "y").Unverified)
}

func TestClientAgainstServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rates", func(w http.ResponseWriter, r *http.Request) {
		var req QuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || r.Method != http.MethodPost {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rates": []Rate{{Method: "courier", Price: decimal.RequireFromString("12.00"), EtaDays: 1}},
		})
	})
	mux.HandleFunc("/addresses/validate", func(w http.ResponseWriter, r *http.Request) {
		valid := r.URL.Query().Get("postcode") == "10115" && r.URL.Query().Get("country") == "DE"
		_ = json.NewEncoder(w).Encode(AddressResult{IsValid: valid, Suggestions: []string{"10117"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second)
	svc := New(client, client, zap.NewNop())

	q := svc.Quote(context.Background(), QuoteRequest{ToPostcode: "10115", WeightGrams: 800})
	assert.False(t, q.Manual)
	require.Len(t, q.Rates, 1)
	assert.Equal(t, "courier", q.Rates[0].Method)

	addr := svc.ValidateAddress(context.Background(), " 10115 ", "de")
	assert.True(t, addr.IsValid)
	assert.False(t, addr.Unverified)
	assert.Equal(t, []string{"10117"}, addr.Suggestions)
}

func TestClientWrapsUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Rates(context.Background(), QuoteRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalService)
}
