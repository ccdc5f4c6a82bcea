// Package source fetches a user's bank transaction history from the
// external bank API, following the teacher's HTTP-client adapter pattern
// (see internal/publicinvoice/service/adyen_client.go).
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	txdomain "github.com/geraldco/bnpl-decision-gateway/internal/transaction/domain"
)

// ErrBankUnavailable wraps any transport or non-2xx failure talking to the
// bank API. The orchestrator surfaces it as a 503 per spec.md §7.
type ErrBankUnavailable struct {
	Cause error
}

func (e *ErrBankUnavailable) Error() string {
	return fmt.Sprintf("bank transactions unavailable: %v", e.Cause)
}

func (e *ErrBankUnavailable) Unwrap() error { return e.Cause }

// Source fetches recent transactions for a user.
type Source interface {
	Fetch(ctx context.Context, userID string) ([]txdomain.Transaction, error)
}

// Client is the HTTP-backed bank transaction source. Connect/read timeouts
// are contracts per spec.md §5 (connect 2s, read 5s), not suggestions.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client with the fixed connect/read timeout budget.
func New(baseURL string) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 2 * time.Second,
		}).DialContext,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: transport,
		},
	}
}

// rawTransaction accepts the flexible key shapes the bank API may emit for
// a single transaction, per spec.md §6.2.
type rawTransaction struct {
	ID          interface{} `json:"id"`
	TxID        interface{} `json:"tx_id"`
	Date        string      `json:"date"`
	Timestamp   string      `json:"timestamp"`
	Amount      interface{} `json:"amount"`
	AmountCents interface{} `json:"amount_cents"`
	Type        string      `json:"type"`
	Balance     interface{} `json:"balance"`
	BalanceCents interface{} `json:"balance_cents"`
	NSF         *bool       `json:"nsf"`
	IsNSF       *bool       `json:"is_nsf"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Merchant    string      `json:"merchant"`
}

// envelope accepts any of the three response shapes the bank API may return:
// a bare array, {"transactions": [...]}, or {"data": [...]}.
type envelope struct {
	Transactions []rawTransaction `json:"transactions"`
	Data         []rawTransaction `json:"data"`
}

// Fetch retrieves the user's transaction history. Any transport error or
// non-2xx response is wrapped in ErrBankUnavailable.
func (c *Client) Fetch(ctx context.Context, userID string) ([]txdomain.Transaction, error) {
	url := fmt.Sprintf("%s/bank/transactions?user_id=%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ErrBankUnavailable{Cause: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ErrBankUnavailable{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ErrBankUnavailable{Cause: fmt.Errorf("bank api returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrBankUnavailable{Cause: err}
	}

	raws, err := decodeRaws(body)
	if err != nil {
		return nil, &ErrBankUnavailable{Cause: err}
	}

	out := make([]txdomain.Transaction, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.toTransaction())
	}
	return out, nil
}

// decodeRaws accepts a bare JSON array, {"transactions": [...]}, or
// {"data": [...]} — the three shapes spec.md §6.2 allows the bank API to use.
func decodeRaws(body []byte) ([]rawTransaction, error) {
	var arr []rawTransaction
	if err := json.Unmarshal(body, &arr); err == nil {
		return arr, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if len(env.Transactions) > 0 {
		return env.Transactions, nil
	}
	return env.Data, nil
}

func (r rawTransaction) toTransaction() txdomain.Transaction {
	id := firstNonEmpty(toString(r.ID), toString(r.TxID))
	dateStr := firstNonEmpty(r.Date, r.Timestamp)
	date := parseDate(dateStr)

	amount := firstNumeric(r.AmountCents, r.Amount)
	balancePtr := firstNumericPtr(r.BalanceCents, r.Balance)

	txType := txdomain.TransactionDebit
	if strings.EqualFold(r.Type, "credit") {
		txType = txdomain.TransactionCredit
	}

	nsf := false
	if r.NSF != nil {
		nsf = *r.NSF
	} else if r.IsNSF != nil {
		nsf = *r.IsNSF
	}

	return txdomain.Transaction{
		ID:           id,
		Date:         date,
		AmountCents:  amount,
		Type:         txType,
		BalanceCents: balancePtr,
		NSF:          nsf,
		Description:  r.Description,
		Category:     r.Category,
		Merchant:     r.Merchant,
	}
}

func parseDate(s string) time.Time {
	layouts := []string{time.RFC3339, "2006-01-02", "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			f, err2 := strconv.ParseFloat(t, 64)
			if err2 != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	default:
		return 0, false
	}
}

func firstNumeric(vals ...interface{}) int64 {
	for _, v := range vals {
		if n, ok := toInt64(v); ok {
			return n
		}
	}
	return 0
}

func firstNumericPtr(vals ...interface{}) *int64 {
	for _, v := range vals {
		if n, ok := toInt64(v); ok {
			return &n
		}
	}
	return nil
}
