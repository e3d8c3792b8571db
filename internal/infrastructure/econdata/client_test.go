package econdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 1,
		BreakerEnabled:   false,
	})
}

func TestGDPGrowthRendersFirstObservation(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"page":1,"pages":1,"per_page":5,"total":2},
			[
				{"date":"2024","value":null,"country":{"value":"Germany"}},
				{"date":"2023","value":-0.3,"country":{"value":"Germany"}}
			]
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 0, testExecutor())
	result, err := client.GDPGrowth(context.Background(), "deu", "2023:2024")
	if err != nil {
		t.Fatalf("GDPGrowth() error = %v", err)
	}
	if result != "GDP growth for Germany (DEU) in 2023: -0.30%" {
		t.Fatalf("result = %q", result)
	}
	if !strings.Contains(gotPath, "/v2/country/DEU/indicator/NY.GDP.MKTP.KD.ZG") {
		t.Fatalf("request path = %q", gotPath)
	}
	if !strings.Contains(gotPath, "date=2023:2024") {
		t.Fatalf("period not forwarded: %q", gotPath)
	}
}

func TestGDPGrowthNoDataIsAnAnswerNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"total":0},[]]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 0, testExecutor())
	result, err := client.GDPGrowth(context.Background(), "DEU", "1800")
	if err != nil {
		t.Fatalf("GDPGrowth() error = %v", err)
	}
	if result != "no GDP growth data for DEU in 1800" {
		t.Fatalf("result = %q", result)
	}
}

func TestGDPGrowthRequiresArguments(t *testing.T) {
	client := NewClient("http://unused", "http://unused", 0, testExecutor())
	if _, err := client.GDPGrowth(context.Background(), "", "2024"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExchangeRateRendersRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("from") != "EUR" || r.URL.Query().Get("to") != "USD" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"base":"EUR","date":"2026-08-28","rates":{"USD":1.0834}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 0, testExecutor())
	result, err := client.ExchangeRate(context.Background(), "eur", "usd")
	if err != nil {
		t.Fatalf("ExchangeRate() error = %v", err)
	}
	if result != "1 EUR = 1.0834 USD (as of 2026-08-28)" {
		t.Fatalf("result = %q", result)
	}
}

func TestExchangeRateMissingQuoteFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"base":"EUR","date":"2026-08-28","rates":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 0, testExecutor())
	if _, err := client.ExchangeRate(context.Background(), "EUR", "XXX"); err == nil {
		t.Fatal("expected error for unknown quote currency")
	}
}

func TestServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 0, testExecutor())
	_, err := client.ExchangeRate(context.Background(), "EUR", "USD")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}
