package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kudipoint/ledger-service/internal/domain"
	"github.com/kudipoint/ledger-service/internal/store"
)

// GatewayStatusConsumer applies asynchronous settlement events from payment
// gateways to the ledger's state machine.
type GatewayStatusConsumer struct {
	repo   store.Repository
	states *StateMachine
}

func NewGatewayStatusConsumer(repo store.Repository, states *StateMachine) *GatewayStatusConsumer {
	return &GatewayStatusConsumer{repo: repo, states: states}
}

// HandleMessage processes one broker delivery. It returns true when the
// message should be acknowledged and false when it should be requeued.
// Malformed payloads are acknowledged: redelivery cannot fix them.
func (c *GatewayStatusConsumer) HandleMessage(body []byte) bool {
	var event domain.GatewayStatusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("gateway-consumer: failed to unmarshal payload: %v", err)
		return true
	}

	if event.ReferenceID == "" {
		log.Printf("gateway-consumer: missing reference id in event %+v", event)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.processEvent(ctx, event); err != nil {
		log.Printf("gateway-consumer: processing error for reference %s: %v", event.ReferenceID, err)
		return false
	}

	return true
}

func (c *GatewayStatusConsumer) processEvent(ctx context.Context, event domain.GatewayStatusEvent) error {
	tx, err := c.repo.FindTransactionByReference(ctx, event.ReferenceID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			log.Printf("gateway-consumer: no transaction found for reference %s; acknowledging", event.ReferenceID)
			return nil
		}
		return fmt.Errorf("lookup transaction: %w", err)
	}

	// Gateways redeliver settlement events; anything that already left pending
	// is a replay and can be acknowledged without touching the ledger.
	if tx.Status.Settled() || tx.Status.Terminal() {
		log.Printf("gateway-consumer: transaction %s already %s; ignoring %q event", tx.ReferenceID, tx.Status, event.Status)
		return nil
	}

	switch normalizeGatewayStatus(event.Status) {
	case "successful":
		_, err = c.states.Approve(ctx, event.ReferenceID)
	case "failed":
		_, err = c.states.Fail(ctx, event.ReferenceID)
	default:
		log.Printf("gateway-consumer: unhandled status %q for reference %s; acknowledging", event.Status, event.ReferenceID)
		return nil
	}

	// A transition rejected as invalid means another worker settled the row
	// between our read and the locked update. Treat it as a replay.
	if errors.Is(err, ErrInvalidTransition) {
		log.Printf("gateway-consumer: stale %q event for reference %s; acknowledging", event.Status, event.ReferenceID)
		return nil
	}

	// Terminal errors cannot be fixed by redelivery: the same transition would
	// fail the same way on every attempt. Only storage failures are retryable.
	// The insufficient-funds case means the user already spent a credit the
	// gateway has now reversed; the row stays pending and is flagged for
	// back-office reconciliation instead of spinning on the queue.
	if isTerminalTransitionError(err) {
		log.Printf("gateway-consumer: unrecoverable %q event for reference %s; acknowledging: %v", event.Status, event.ReferenceID, err)
		return nil
	}
	return err
}

func isTerminalTransitionError(err error) bool {
	return errors.Is(err, store.ErrInsufficientFunds) ||
		errors.Is(err, store.ErrUserNotFound) ||
		errors.Is(err, store.ErrTransactionNotFound)
}

func normalizeGatewayStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "successful", "completed", "approved":
		return "successful"
	case "failed", "failure", "reversed", "abandoned":
		return "failed"
	default:
		return strings.ToLower(strings.TrimSpace(status))
	}
}
