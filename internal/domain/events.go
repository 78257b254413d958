/**
 * @description
 * Message payloads exchanged over RabbitMQ. The ledger-service publishes
 * transaction lifecycle events for the notification service and consumes
 * settlement status events emitted by the gateway webhook relay.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionEvent is published whenever a ledger entry is recorded or changes
// status. Consumers (notification delivery, reporting) treat it as informational.
type TransactionEvent struct {
	ReferenceID string            `json:"reference_id"`
	UserID      uuid.UUID         `json:"user_id"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Amount      int64             `json:"amount"` // in kobo
	Timestamp   time.Time         `json:"timestamp"`
}

// GatewayStatusEvent is the asynchronous settlement result for a previously
// recorded transaction, keyed by the ledger reference id the gateway echoed back.
type GatewayStatusEvent struct {
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"` // "successful" or "failed"
	Reason      string `json:"reason,omitempty"`
}
