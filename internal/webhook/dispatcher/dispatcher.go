// Package dispatcher sends outbound webhooks to the downstream ledger
// service with bounded retries, auditing every attempt (spec.md §4.8).
//
// The retry loop is explicit and inspectable rather than a decorator
// wrapping the send function (spec.md §9): it refreshes the target URL from
// storage before every attempt, commits attempt state as it goes, and
// reports back whether the ledger ultimately accepted the payload.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geraldco/bnpl-decision-gateway/internal/observability/metrics"
	webhookdomain "github.com/geraldco/bnpl-decision-gateway/internal/webhook/domain"
)

// MaxAttempts is 1 initial attempt + 5 retries, per spec.md §4.8 and the
// Open Question decision recorded in DESIGN.md.
const MaxAttempts = 6

// Store is the persistence capability the dispatcher depends on.
type Store interface {
	Create(ctx context.Context, w *webhookdomain.OutboundWebhook) error
	GetByID(ctx context.Context, id uuid.UUID) (*webhookdomain.OutboundWebhook, error)
	RecordAttempt(ctx context.Context, id uuid.UUID, attempts int, status webhookdomain.Status, attemptedAt time.Time) error
}

// Dispatcher sends BNPL_APPROVED webhooks to the ledger endpoint.
type Dispatcher struct {
	store   Store
	http    *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
	newBackOff func() *backoff.ExponentialBackOff
}

// New builds a Dispatcher. The bank/ledger client timeout budget (connect
// 2s, read 5s) is a contract per spec.md §5.
func New(store Store, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		store: store,
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 2 * time.Second,
				}).DialContext,
			},
		},
		log:     log.Named("webhook.dispatcher"),
		metrics: m,
		newBackOff: func() *backoff.ExponentialBackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(1*time.Second),
				backoff.WithMultiplier(2),
				backoff.WithMaxInterval(30*time.Second),
				backoff.WithRandomizationFactor(0),
			)
		},
	}
}

// Dispatch creates the audit row, then attempts delivery up to MaxAttempts
// times with exponential backoff. It returns (ok, attemptsConsumed) for the
// orchestrator to log; webhook failure never propagates as an orchestrator
// error (spec.md §4.7 step 7, §7 WebhookFailed).
func (d *Dispatcher) Dispatch(ctx context.Context, payload webhookdomain.Payload, targetURL string) (ok bool, attemptsConsumed int, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, 0, fmt.Errorf("marshal webhook payload: %w", err)
	}

	var planID *uuid.UUID
	if payload.PlanID != uuid.Nil {
		p := payload.PlanID
		planID = &p
	}

	row := &webhookdomain.OutboundWebhook{
		ID:        uuid.New(),
		EventType: payload.Event,
		Payload:   body,
		TargetURL: targetURL,
		Status:    webhookdomain.StatusPending,
		Attempts:  0,
		PlanID:    planID,
	}
	if err := d.store.Create(ctx, row); err != nil {
		return false, 0, fmt.Errorf("create webhook row: %w", err)
	}

	bo := d.newBackOff()
	attempts := 0
	success := false

	for attempts < MaxAttempts {
		attempts++

		// Refresh from storage so an operator can redirect in-flight retries.
		current, err := d.store.GetByID(ctx, row.ID)
		if err != nil {
			d.log.Error("refresh webhook row failed", zap.Error(err), zap.String("webhook_id", row.ID.String()))
			current = row
		}

		attemptedAt := time.Now().UTC()
		latency, attemptErr := d.attempt(ctx, current.TargetURL, body)
		d.metrics.ObserveWebhookLatency(outcomeLabel(attemptErr), latency.Seconds())

		status := webhookdomain.StatusFailed
		if attemptErr == nil {
			success = true
			status = webhookdomain.StatusSuccess
		}

		if recErr := d.store.RecordAttempt(ctx, row.ID, attempts, status, attemptedAt); recErr != nil {
			d.log.Error("record webhook attempt failed", zap.Error(recErr), zap.String("webhook_id", row.ID.String()))
		}

		if success {
			break
		}
		if attempts >= MaxAttempts {
			break
		}

		// The orchestrator hands Dispatch a context detached from the
		// inbound request (spec.md §5: cancellation after persistence
		// must not abort an in-flight dispatch), so a plain sleep here
		// is safe.
		time.Sleep(bo.NextBackOff())
	}

	return success, attempts, nil
}

func (d *Dispatcher) attempt(ctx context.Context, url string, body []byte) (time.Duration, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return time.Since(start), err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return time.Since(start), err
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return elapsed, fmt.Errorf("ledger responded with status %d", resp.StatusCode)
	}
	return elapsed, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}
