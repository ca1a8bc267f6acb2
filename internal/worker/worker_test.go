package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"csc-ledger/internal/config"
	"csc-ledger/internal/logging"
	"csc-ledger/internal/models"
)

type fakeLedger struct {
	mu      sync.Mutex
	grants  []models.GrantRequest
	credits []models.CreditRequest
	bonuses []models.CreditRequest
	failOn  map[string]error
}

func (f *fakeLedger) Grant(_ context.Context, req models.GrantRequest) (*models.GrantResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[req.PurchaseReference]; err != nil {
		return nil, err
	}
	f.grants = append(f.grants, req)
	return &models.GrantResponse{EntitlementID: "ent-" + req.PurchaseReference, Created: true}, nil
}

func (f *fakeLedger) Credit(_ context.Context, req models.CreditRequest) (*models.TransactionCreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[req.Reference]; err != nil {
		return nil, err
	}
	f.credits = append(f.credits, req)
	return &models.TransactionCreateResponse{TransactionID: "tx-" + req.Reference, Created: true}, nil
}

func (f *fakeLedger) Bonus(_ context.Context, req models.CreditRequest) (*models.TransactionCreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bonuses = append(f.bonuses, req)
	return &models.TransactionCreateResponse{TransactionID: "tx-" + req.Reference, Created: true}, nil
}

func TestPaymentHandler_HandleOwnerEvents(t *testing.T) {
	tests := []struct {
		name        string
		failOn      map[string]error
		events      []models.PaymentEvent
		wantErr     bool
		wantHandled int
		wantGrants  int
		wantCredits int
		wantBonuses int
	}{
		{
			name: "dispatches each kind",
			events: []models.PaymentEvent{
				{Kind: models.PaymentEntitlementPurchased, OwnerID: "c-1", OwnerKind: models.OwnerKindCenter, PackageRef: "leads-10", TotalCredits: 10, ValidityDays: 30, Reference: "pay-1"},
				{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Amount: 250, Reference: "task-1", TaskID: "t-1"},
				{Kind: models.PaymentBonusAwarded, OwnerID: "c-1", Amount: 50, Reference: "bonus-1"},
			},
			wantHandled: 3,
			wantGrants:  1,
			wantCredits: 1,
			wantBonuses: 1,
		},
		{
			name:   "rejected events are skipped",
			failOn: map[string]error{"task-bad": models.NewValidationError(models.ErrInvalidAmount, "amount", "must be positive")},
			events: []models.PaymentEvent{
				{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Amount: 0, Reference: "task-bad"},
				{Kind: "refund.issued", OwnerID: "c-1", Reference: "r-1"},
				{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Amount: 10, Reference: "task-2"},
			},
			wantHandled: 3,
			wantCredits: 1,
		},
		{
			name:   "infrastructure failure stops the owner",
			failOn: map[string]error{"task-2": errors.New("connection reset")},
			events: []models.PaymentEvent{
				{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Amount: 10, Reference: "task-1"},
				{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Amount: 10, Reference: "task-2"},
				{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Amount: 10, Reference: "task-3"},
			},
			wantErr:     true,
			wantHandled: 1,
			wantCredits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{failOn: tt.failOn}
			h := NewPaymentHandler(ledger, ledger, logging.Discard())

			handled, err := h.HandleOwnerEvents(context.Background(), "center:c-1", tt.events)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if handled != tt.wantHandled {
				t.Errorf("handled = %d, want %d", handled, tt.wantHandled)
			}
			if len(ledger.grants) != tt.wantGrants || len(ledger.credits) != tt.wantCredits || len(ledger.bonuses) != tt.wantBonuses {
				t.Errorf("grants=%d credits=%d bonuses=%d, want %d/%d/%d",
					len(ledger.grants), len(ledger.credits), len(ledger.bonuses),
					tt.wantGrants, tt.wantCredits, tt.wantBonuses)
			}
		})
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	batches map[string][][]models.PaymentEvent
	seen    chan struct{}
	failFor string
	// failures is how many calls for failFor fail before it recovers; zero fails forever.
	failures int
	// handledOnFailure is how many leading events a failing call reports as done.
	handledOnFailure int
	calls            map[string]int
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		batches: make(map[string][][]models.PaymentEvent),
		seen:    make(chan struct{}, 64),
		calls:   make(map[string]int),
	}
}

func (h *recordingHandler) HandleOwnerEvents(_ context.Context, owner string, events []models.PaymentEvent) (int, error) {
	h.mu.Lock()
	h.batches[owner] = append(h.batches[owner], events)
	h.calls[owner]++
	fail := owner == h.failFor && (h.failures == 0 || h.calls[owner] <= h.failures)
	h.mu.Unlock()
	for range events {
		h.seen <- struct{}{}
	}
	if fail {
		return h.handledOnFailure, errors.New("boom")
	}
	return len(events), nil
}

func (h *recordingHandler) references(owner string, call int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	refs := make([]string, 0)
	for _, e := range h.batches[owner][call] {
		refs = append(refs, e.Reference)
	}
	return refs
}

func TestBatchProcessor_GroupsByOwnerAndKeepsOrder(t *testing.T) {
	h := newRecordingHandler()
	bp := NewBatchProcessor(0, h, logging.Discard())

	events := []models.PaymentEvent{
		{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Reference: "a"},
		{Kind: models.PaymentEntitlementPurchased, OwnerID: "u-1", OwnerKind: models.OwnerKindUser, Reference: "b"},
		{Kind: models.PaymentBonusAwarded, OwnerID: "c-1", Reference: "c"},
		{Kind: models.PaymentEntitlementPurchased, OwnerID: "c-1", OwnerKind: models.OwnerKindCenter, Reference: "d"},
	}
	for _, e := range events {
		bp.AddMessage(&sarama.ConsumerMessage{}, e)
	}

	bp.ProcessBatch(context.Background())

	if bp.Pending() != 0 {
		t.Fatalf("%d events left buffered", bp.Pending())
	}
	if got := h.references("center:c-1", 0); !equalRefs(got, []string{"a", "c", "d"}) {
		t.Errorf("center events = %v, want [a c d]", got)
	}
	if got := h.references("user:u-1", 0); !equalRefs(got, []string{"b"}) {
		t.Errorf("user events = %v, want [b]", got)
	}
}

func TestBatchProcessor_FailedOwnerIsRetried(t *testing.T) {
	tests := []struct {
		name             string
		failures         int
		handledOnFailure int
		batches          int
		wantCalls        int
		wantPending      int
		wantRetry        []string
	}{
		{
			name:             "transient failure resumes after the handled events",
			failures:         1,
			handledOnFailure: 1,
			batches:          2,
			wantCalls:        2,
			wantPending:      0,
			wantRetry:        []string{"c", "d", "e"},
		},
		{
			name:        "events stay buffered while the owner keeps failing",
			batches:     2,
			wantCalls:   2,
			wantPending: 4,
			wantRetry:   []string{"a", "c", "d", "e"},
		},
		{
			name:        "owner is given up after repeated failures",
			batches:     maxOwnerAttempts,
			wantCalls:   maxOwnerAttempts,
			wantPending: 0,
			wantRetry:   []string{"a", "c", "d", "e"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRecordingHandler()
			h.failFor = "center:c-1"
			h.failures = tt.failures
			h.handledOnFailure = tt.handledOnFailure
			bp := NewBatchProcessor(0, h, logging.Discard())

			for _, ref := range []string{"a", "c", "d"} {
				bp.AddMessage(&sarama.ConsumerMessage{}, models.PaymentEvent{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Reference: ref})
			}
			bp.AddMessage(&sarama.ConsumerMessage{}, models.PaymentEvent{Kind: models.PaymentCommissionEarned, OwnerID: "c-2", Reference: "b"})

			bp.ProcessBatch(context.Background())
			// Arrives while c-1 is held back, so it must queue behind the held events.
			bp.AddMessage(&sarama.ConsumerMessage{}, models.PaymentEvent{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Reference: "e"})
			for i := 1; i < tt.batches; i++ {
				bp.ProcessBatch(context.Background())
			}

			h.mu.Lock()
			calls, otherCalls := h.calls["center:c-1"], h.calls["center:c-2"]
			h.mu.Unlock()
			if calls != tt.wantCalls {
				t.Errorf("c-1 handled %d times, want %d", calls, tt.wantCalls)
			}
			if otherCalls != 1 {
				t.Errorf("c-2 handled %d times, want 1", otherCalls)
			}
			if got := bp.Pending(); got != tt.wantPending {
				t.Errorf("pending = %d, want %d", got, tt.wantPending)
			}
			if got := h.references("center:c-1", 1); !equalRefs(got, tt.wantRetry) {
				t.Errorf("retried events = %v, want %v", got, tt.wantRetry)
			}
		})
	}
}

func equalRefs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBatchProcessor_ProcessRemainingDoesNotDeadlock(t *testing.T) {
	h := newRecordingHandler()
	bp := NewBatchProcessor(0, h, logging.Discard())
	bp.AddMessage(&sarama.ConsumerMessage{}, models.PaymentEvent{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Reference: "a"})

	done := make(chan struct{})
	go func() {
		bp.ProcessRemaining(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ProcessRemaining did not return")
	}
	if len(h.batches["center:c-1"]) != 1 {
		t.Errorf("remaining events were not processed")
	}
}

func TestPartitionManager_ConsumesAndFlushesOnShutdown(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)

	encode := func(e models.PaymentEvent) []byte {
		b, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}

	consumer.ExpectConsumePartition("payments", 0, sarama.OffsetOldest).
		YieldMessage(&sarama.ConsumerMessage{Value: encode(models.PaymentEvent{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Amount: 5, Reference: "task-1"})}).
		YieldMessage(&sarama.ConsumerMessage{Value: []byte("{not json")}).
		YieldMessage(&sarama.ConsumerMessage{Value: encode(models.PaymentEvent{Kind: models.PaymentCommissionEarned, OwnerID: "c-1", Amount: 7, Reference: "task-2"})})

	cfg := &config.Config{
		Kafka:  config.KafkaConfig{PaymentsTopic: "payments", Partitions: 1},
		Worker: config.WorkerConfig{ProcessingInterval: 10 * time.Millisecond},
	}
	h := newRecordingHandler()
	m := NewPartitionManager(cfg, consumer, h, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- m.Start(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-h.seen:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of 2 events were handled", i)
		}
	}
	cancel()

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("partition manager did not stop")
	}

	var refs []string
	h.mu.Lock()
	for _, batch := range h.batches["center:c-1"] {
		for _, e := range batch {
			refs = append(refs, e.Reference)
		}
	}
	h.mu.Unlock()
	if len(refs) != 2 || refs[0] != "task-1" || refs[1] != "task-2" {
		t.Errorf("handled references = %v, want [task-1 task-2]", refs)
	}
}

func TestPartitionManager_RejectsZeroPartitions(t *testing.T) {
	cfg := &config.Config{Kafka: config.KafkaConfig{PaymentsTopic: "payments"}}
	m := NewPartitionManager(cfg, mocks.NewConsumer(t, nil), newRecordingHandler(), logging.Discard())

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected an error for zero partitions")
	}
}
