package worker

import (
	"context"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"csc-ledger/internal/logging"
	"csc-ledger/internal/models"
)

// maxOwnerAttempts bounds how many batches in a row may fail for one owner
// before its held-back events are dropped. Offsets are never committed, so a
// dropped event is still replayed on the next worker start.
const maxOwnerAttempts = 5

// OwnerEventHandler applies the events of a single owner, in order. handled
// counts the leading events that are done with, applied or skipped, when err
// stops the owner early.
type OwnerEventHandler interface {
	HandleOwnerEvents(ctx context.Context, owner string, events []models.PaymentEvent) (handled int, err error)
}

type bufferedEvent struct {
	msg   *sarama.ConsumerMessage
	event models.PaymentEvent
}

type BatchProcessor struct {
	partitionID   int
	handler       OwnerEventHandler
	logger        *logrus.Logger
	buffer        []bufferedEvent
	attempts      map[string]int
	mutex         sync.Mutex
	lastProcessed time.Time
}

func NewBatchProcessor(partitionID int, handler OwnerEventHandler, logger *logrus.Logger) *BatchProcessor {
	return &BatchProcessor{
		partitionID:   partitionID,
		handler:       handler,
		logger:        logger,
		buffer:        make([]bufferedEvent, 0),
		attempts:      make(map[string]int),
		lastProcessed: time.Now(),
	}
}

func (bp *BatchProcessor) AddMessage(msg *sarama.ConsumerMessage, event models.PaymentEvent) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	bp.buffer = append(bp.buffer, bufferedEvent{msg: msg, event: event})
}

// Pending returns the number of buffered events.
func (bp *BatchProcessor) Pending() int {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	return len(bp.buffer)
}

// ProcessBatch drains the buffer and applies it owner by owner. The lock is
// released before the handler runs so AddMessage never waits on the database.
// An owner that fails keeps its unhandled events at the head of the buffer for
// the next batch, ahead of anything that arrived meanwhile.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context) {
	bp.mutex.Lock()
	batch := bp.buffer
	bp.buffer = make([]bufferedEvent, 0)
	bp.lastProcessed = time.Now()
	bp.mutex.Unlock()

	if len(batch) == 0 {
		return
	}

	log := bp.logger.WithField("partition", bp.partitionID)
	log.WithField("events", len(batch)).Debug("Processing payment event batch")

	owners, grouped := groupByOwner(batch)
	held := make([]bufferedEvent, 0)
	failed := 0
	for _, owner := range owners {
		entries := grouped[owner]
		handled, err := bp.handler.HandleOwnerEvents(ctx, owner, eventsOf(entries))
		if err == nil {
			delete(bp.attempts, owner)
			continue
		}

		failed++
		bp.attempts[owner]++
		ownerLog := log.WithError(err).WithFields(logging.Fields{
			"owner":    owner,
			"attempts": bp.attempts[owner],
		})
		if bp.attempts[owner] >= maxOwnerAttempts {
			delete(bp.attempts, owner)
			ownerLog.WithField("dropped", len(entries)-handled).
				Error("Giving up on payment events for owner until redelivery")
			continue
		}
		ownerLog.Error("Failed to process payment events for owner, retrying next batch")
		held = append(held, entries[clampHandled(handled, len(entries)):]...)
	}

	if len(held) > 0 {
		bp.mutex.Lock()
		bp.buffer = append(held, bp.buffer...)
		bp.mutex.Unlock()
	}

	log.WithFields(logging.Fields{
		"events": len(batch),
		"owners": len(owners),
		"failed": failed,
		"held":   len(held),
	}).Info("Payment event batch processed")
}

// ProcessRemaining flushes whatever is buffered before shutdown. Events an
// owner could not apply stay unacknowledged and are replayed on restart.
func (bp *BatchProcessor) ProcessRemaining(ctx context.Context) {
	if n := bp.Pending(); n > 0 {
		bp.logger.WithFields(logging.Fields{
			"partition": bp.partitionID,
			"events":    n,
		}).Info("Processing remaining payment events before shutdown")
	}
	bp.ProcessBatch(ctx)
	if n := bp.Pending(); n > 0 {
		bp.logger.WithFields(logging.Fields{
			"partition": bp.partitionID,
			"events":    n,
		}).Warn("Payment events left unapplied at shutdown")
	}
}

func clampHandled(handled, n int) int {
	if handled < 0 {
		return 0
	}
	if handled > n {
		return n
	}
	return handled
}

func eventsOf(entries []bufferedEvent) []models.PaymentEvent {
	events := make([]models.PaymentEvent, len(entries))
	for i, e := range entries {
		events[i] = e.event
	}
	return events
}

// groupByOwner keeps first-seen owner order and per-owner event order.
func groupByOwner(batch []bufferedEvent) ([]string, map[string][]bufferedEvent) {
	owners := make([]string, 0)
	grouped := make(map[string][]bufferedEvent)

	for _, entry := range batch {
		key := ownerKey(entry.event)
		if _, seen := grouped[key]; !seen {
			owners = append(owners, key)
		}
		grouped[key] = append(grouped[key], entry)
	}
	return owners, grouped
}

func ownerKey(event models.PaymentEvent) string {
	kind := event.OwnerKind
	if event.Kind != models.PaymentEntitlementPurchased {
		kind = models.OwnerKindCenter
	}
	return string(kind) + ":" + event.OwnerID
}
