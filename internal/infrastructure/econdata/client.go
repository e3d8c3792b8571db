package econdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/resilience"
)

const gdpGrowthIndicator = "NY.GDP.MKTP.KD.ZG"

// Client answers the agent's live data functions from two public HTTP APIs:
// a World Bank style indicator API for GDP growth and a Frankfurter style
// rates API for exchange rates. Results are rendered to plain text because
// they are fed straight back to the reasoning model as tool output.
type Client struct {
	gdpBaseURL string
	fxBaseURL  string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewClient(gdpBaseURL, fxBaseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		gdpBaseURL: strings.TrimRight(gdpBaseURL, "/"),
		fxBaseURL:  strings.TrimRight(fxBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type gdpObservation struct {
	Date    string   `json:"date"`
	Value   *float64 `json:"value"`
	Country struct {
		Value string `json:"value"`
	} `json:"country"`
}

func (c *Client) GDPGrowth(ctx context.Context, countryCode, period string) (string, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	period = strings.TrimSpace(period)
	if countryCode == "" || period == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "gdp growth", errors.New("country and period are required"))
	}

	path := fmt.Sprintf("/v2/country/%s/indicator/%s?format=json&per_page=5&date=%s", countryCode, gdpGrowthIndicator, period)

	// The indicator API answers with a two-element array: paging metadata
	// first, observations second.
	var envelope []json.RawMessage
	if err := c.getJSON(ctx, c.gdpBaseURL+path, &envelope, "econdata.gdp"); err != nil {
		return "", wrapTemporaryIfNeeded("gdp growth", err)
	}
	if len(envelope) < 2 {
		return "", fmt.Errorf("gdp growth: unexpected response shape")
	}

	var observations []gdpObservation
	if err := json.Unmarshal(envelope[1], &observations); err != nil {
		return "", fmt.Errorf("gdp growth: decode observations: %w", err)
	}

	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}
		name := obs.Country.Value
		if name == "" {
			name = countryCode
		}
		return fmt.Sprintf("GDP growth for %s (%s) in %s: %.2f%%", name, countryCode, obs.Date, *obs.Value), nil
	}
	return fmt.Sprintf("no GDP growth data for %s in %s", countryCode, period), nil
}

func (c *Client) ExchangeRate(ctx context.Context, base, quote string) (string, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "exchange rate", errors.New("base and quote currencies are required"))
	}

	var response struct {
		Base  string             `json:"base"`
		Date  string             `json:"date"`
		Rates map[string]float64 `json:"rates"`
	}
	url := fmt.Sprintf("%s/latest?from=%s&to=%s", c.fxBaseURL, base, quote)
	if err := c.getJSON(ctx, url, &response, "econdata.fx"); err != nil {
		return "", wrapTemporaryIfNeeded("exchange rate", err)
	}

	rate, ok := response.Rates[quote]
	if !ok {
		return "", fmt.Errorf("exchange rate: no rate for %s/%s", base, quote)
	}
	return fmt.Sprintf("1 %s = %.4f %s (as of %s)", base, rate, quote, response.Date), nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any, operation string) error {
	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &httpStatusError{
				operation:  operation,
				statusCode: resp.StatusCode,
				status:     resp.Status,
				body:       strings.TrimSpace(string(raw)),
			}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, operation, call, classifyAPIError)
}

type httpStatusError struct {
	operation  string
	statusCode int
	status     string
	body       string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("%s status: %s", e.operation, e.status)
	}
	return fmt.Sprintf("%s status: %s: %s", e.operation, e.status, e.body)
}

func classifyAPIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.statusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if class := classifyAPIError(err); class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
