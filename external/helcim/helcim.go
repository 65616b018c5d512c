// Package helcim is a thin client for the Helcim smart-terminal API.
//
// The device API is asynchronous: starting a purchase sometimes answers with
// a resource location carrying a card-transaction id, and sometimes with a
// bare acknowledgement that only echoes the invoice number. Both are
// successful outcomes and are modelled explicitly in StartResult.
package helcim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.helcim.com/v2"

// requestTimeout bounds a single provider call. The polling ceiling owned by
// the caller is the dominant application-level timeout.
const requestTimeout = 15 * time.Second

// ErrTransactionNotFound is returned when the provider answers 404 for a
// transaction lookup. During polling the transaction may simply not be
// visible yet, so callers treat this as pending, not as a fault.
var ErrTransactionNotFound = errors.New("helcim: transaction not found")

// GatewayError is any non-2xx provider response other than the lookup 404.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("helcim: provider returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	// merchantToken, when set, unlocks merchant-wide transaction search as a
	// last correlation strategy. Device calls use per-location tokens.
	merchantToken string
	client        *http.Client
}

func NewClient(baseURL, merchantToken string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		merchantToken: merchantToken,
		client:        &http.Client{Timeout: requestTimeout},
	}
}

// HasMerchantToken reports whether merchant-wide search is available.
func (c *Client) HasMerchantToken() bool {
	return c.merchantToken != ""
}

type PurchaseRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	TipAmount     decimal.Decimal `json:"tipAmount"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Description   string          `json:"description,omitempty"`
}

// StartOutcome tags how the provider acknowledged a purchase start.
type StartOutcome string

const (
	// OutcomeTransactionID means the provider handed back a transaction id
	// synchronously, via a location header or the response body.
	OutcomeTransactionID StartOutcome = "transaction_id"
	// OutcomeInvoiceOnly means only the echoed invoice number is available;
	// the transaction must later be correlated by invoice search.
	OutcomeInvoiceOnly StartOutcome = "invoice_only"
)

type StartResult struct {
	Outcome       StartOutcome
	TransactionID string
	InvoiceNumber string
}

type CardTransaction struct {
	TransactionID string          `json:"transactionId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	CardLast4     string          `json:"cardLast4"`
	DateCreated   string          `json:"dateCreated"`
}

type startResponseBody struct {
	TransactionID string `json:"transactionId"`
	InvoiceNumber string `json:"invoiceNumber"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// StartPurchase asks the terminal paired as deviceCode to collect a
// card-present payment.
func (c *Client) StartPurchase(ctx context.Context, apiToken, deviceCode string, req PurchaseRequest) (*StartResult, error) {
	endpoint := fmt.Sprintf("%s/devices/%s/payment/purchase", c.baseURL, url.PathEscape(deviceCode))

	header, raw, err := c.doRequest(ctx, http.MethodPost, endpoint, apiToken, req)
	if err != nil {
		return nil, err
	}

	// The location-style header is not guaranteed to be canonically cased,
	// so match header names case-insensitively.
	if loc := headerCaseInsensitive(header, "Location"); loc != "" {
		if id := lastPathSegment(loc); id != "" {
			return &StartResult{
				Outcome:       OutcomeTransactionID,
				TransactionID: id,
				InvoiceNumber: req.InvoiceNumber,
			}, nil
		}
	}

	if len(raw) > 0 {
		var parsed startResponseBody
		if err := json.Unmarshal(raw, &parsed); err == nil && parsed.TransactionID != "" {
			return &StartResult{
				Outcome:       OutcomeTransactionID,
				TransactionID: parsed.TransactionID,
				InvoiceNumber: req.InvoiceNumber,
			}, nil
		}
	}

	// Bare acknowledgement. Confirmed non-error outcome: the charge is in
	// flight on the device and will be found later by invoice search.
	return &StartResult{
		Outcome:       OutcomeInvoiceOnly,
		InvoiceNumber: req.InvoiceNumber,
	}, nil
}

// GetTransaction looks a card transaction up by id. A 404 is reported as
// ErrTransactionNotFound so pollers can keep waiting.
func (c *Client) GetTransaction(ctx context.Context, apiToken, transactionID string) (*CardTransaction, error) {
	endpoint := fmt.Sprintf("%s/card-transactions/%s", c.baseURL, url.PathEscape(transactionID))

	_, raw, err := c.doRequest(ctx, http.MethodGet, endpoint, apiToken, nil)
	if err != nil {
		return nil, err
	}

	var txn CardTransaction
	if err := json.Unmarshal(raw, &txn); err != nil {
		return nil, fmt.Errorf("helcim: decoding transaction: %w", err)
	}
	return &txn, nil
}

// SearchDeviceTransactions lists recent transactions for one device,
// optionally filtered server-side by invoice number. An empty list is not an
// error.
func (c *Client) SearchDeviceTransactions(ctx context.Context, apiToken, deviceCode, invoiceNumber string) ([]CardTransaction, error) {
	u, _ := url.Parse(c.baseURL + "/card-transactions")
	q := u.Query()
	q.Set("deviceCode", deviceCode)
	if invoiceNumber != "" {
		q.Set("invoiceNumber", invoiceNumber)
	}
	u.RawQuery = q.Encode()

	return c.searchTransactions(ctx, apiToken, u.String())
}

// SearchMerchantTransactions lists recent transactions across every device
// of the merchant. Requires a merchant-level token.
func (c *Client) SearchMerchantTransactions(ctx context.Context, invoiceNumber string) ([]CardTransaction, error) {
	if c.merchantToken == "" {
		return nil, errors.New("helcim: merchant token not configured")
	}

	u, _ := url.Parse(c.baseURL + "/card-transactions")
	if invoiceNumber != "" {
		q := u.Query()
		q.Set("invoiceNumber", invoiceNumber)
		u.RawQuery = q.Encode()
	}

	return c.searchTransactions(ctx, c.merchantToken, u.String())
}

func (c *Client) searchTransactions(ctx context.Context, apiToken, endpoint string) ([]CardTransaction, error) {
	_, raw, err := c.doRequest(ctx, http.MethodGet, endpoint, apiToken, nil)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if len(raw) == 0 {
		return nil, nil
	}

	var list []CardTransaction
	if err := json.Unmarshal(raw, &list); err != nil {
		// Some API versions wrap the list.
		var wrapped struct {
			Transactions []CardTransaction `json:"transactions"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("helcim: decoding transaction list: %w", err)
		}
		list = wrapped.Transactions
	}
	return list, nil
}

// CancelPurchase asks the device to abort whatever payment it is collecting.
// Best effort: a charge the terminal already completed stays completed.
func (c *Client) CancelPurchase(ctx context.Context, apiToken, deviceCode string) error {
	endpoint := fmt.Sprintf("%s/devices/%s/payment/cancel", c.baseURL, url.PathEscape(deviceCode))

	_, _, err := c.doRequest(ctx, http.MethodPost, endpoint, apiToken, struct{}{})
	return err
}

// doRequest issues one provider call, translating 404 into
// ErrTransactionNotFound and any other non-2xx status into a GatewayError
// carrying the provider's message.
func (c *Client) doRequest(ctx context.Context, method, endpoint, apiToken string, payload interface{}) (http.Header, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		reqBody = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("api-token", apiToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil, ErrTransactionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    providerMessage(raw, resp.Status),
		}
	}

	return resp.Header, raw, nil
}

func providerMessage(raw []byte, fallback string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Errors  string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Message != "":
			return body.Message
		case body.Error != "":
			return body.Error
		case body.Errors != "":
			return body.Errors
		}
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return fallback
}

func headerCaseInsensitive(h http.Header, name string) string {
	for k, v := range h {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func lastPathSegment(loc string) string {
	loc = strings.TrimRight(loc, "/")
	if i := strings.LastIndex(loc, "/"); i >= 0 {
		return loc[i+1:]
	}
	return loc
}
