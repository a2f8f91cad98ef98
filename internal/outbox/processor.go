package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/pkg/logger"
)

// MessageHandler defines the interface for handling outbox messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, message *models.OutboxMessage) error
}

// MessageStore is the slice of the outbox repository the processor drives.
// Only pending messages are ever selected, so every non-terminal outcome
// must put the row back to pending.
type MessageStore interface {
	GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkAsProcessing(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64, errorMessage string) error
	MarkAsCompleted(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64, errorMessage string) error
}

// Processor drains the transactional outbox and dispatches each message to
// the handler registered for its event type
type Processor struct {
	outboxRepo      MessageStore
	handlers        map[string]MessageHandler
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	logger          logger.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	running         bool
	mu              sync.Mutex
}

// ProcessorConfig holds the configuration for the Processor
type ProcessorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxRetries      int
}

// NewProcessor creates a new Processor
func NewProcessor(
	outboxRepo MessageStore,
	config ProcessorConfig,
	logger logger.Logger,
) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		outboxRepo:      outboxRepo,
		handlers:        make(map[string]MessageHandler),
		pollingInterval: config.PollingInterval,
		batchSize:       config.BatchSize,
		maxRetries:      config.MaxRetries,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		running:         false,
	}
}

// RegisterHandler registers a message handler for a specific event type
func (p *Processor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = handler
}

// Start starts the outbox processor
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.processOutbox()
	}()

	p.logger.Info("Outbox processor started",
		"pollingInterval", p.pollingInterval,
		"batchSize", p.batchSize)
}

// Stop stops the outbox processor
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Outbox processor stopped")
}

// processOutbox processes outbox messages in a loop
func (p *Processor) processOutbox() {
	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.processBatch(); err != nil {
				p.logger.Error("Failed to process outbox batch", "error", err)
			}
		}
	}
}

// processBatch processes a batch of outbox messages
func (p *Processor) processBatch() error {
	ctx, cancel := context.WithTimeout(p.ctx, p.pollingInterval)
	defer cancel()

	messages, err := p.outboxRepo.GetPendingMessages(ctx, p.batchSize)

	if err != nil {
		return fmt.Errorf("failed to get pending messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Info("Processing batch of outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := p.processMessage(ctx, msg); err != nil {
			p.logger.Error("Failed to process message",
				"error", err,
				"messageID", msg.ID,
				"aggregateID", msg.AggregateID,
				"eventType", msg.EventType)

			// Continue processing other messages
			continue
		}
	}

	return nil
}

// processMessage processes a single outbox message
func (p *Processor) processMessage(ctx context.Context, msg *models.OutboxMessage) error {
	if err := p.outboxRepo.MarkAsProcessing(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to mark message as processing: %w", err)
	}

	// The row was selected before MarkAsProcessing incremented its counter;
	// keep the in-memory copy in step so the retry budget counts this attempt
	msg.ProcessingAttempts++

	handler, exists := p.handlers[msg.EventType]

	if !exists {
		errorMsg := fmt.Sprintf("no handler registered for event type: %s", msg.EventType)
		p.logger.Error(errorMsg, "messageID", msg.ID)

		if err := p.outboxRepo.MarkAsFailed(ctx, msg.ID, errorMsg); err != nil {
			p.logger.Error("Failed to mark message as failed", "error", err, "messageID", msg.ID)
		}

		return fmt.Errorf("no handler registered for event type: %s", msg.EventType)
	}

	err := handler.HandleMessage(ctx, msg)

	if err != nil {
		if msg.ProcessingAttempts >= p.maxRetries {
			errorMsg := fmt.Sprintf("max retries reached: %s", err.Error())
			p.logger.Error(errorMsg,
				"messageID", msg.ID,
				"attempts", msg.ProcessingAttempts)

			if markErr := p.outboxRepo.MarkAsFailed(ctx, msg.ID, errorMsg); markErr != nil {
				p.logger.Error("Failed to mark message as failed", "error", markErr, "messageID", msg.ID)
			}

			return fmt.Errorf("message failed after %d attempts: %w", msg.ProcessingAttempts, err)
		}

		// Back to pending, where the next poll picks it up again. Only
		// pending rows are selected, so leaving it in processing here
		// would strand the event.
		if markErr := p.outboxRepo.MarkAsPending(ctx, msg.ID, err.Error()); markErr != nil {
			p.logger.Error("Failed to requeue message", "error", markErr, "messageID", msg.ID)
			return fmt.Errorf("failed to requeue message: %w", markErr)
		}

		p.logger.Warn("Message processing failed, will retry",
			"error", err,
			"messageID", msg.ID,
			"attempt", msg.ProcessingAttempts)
		return err
	}

	if err := p.outboxRepo.MarkAsCompleted(ctx, msg.ID); err != nil {
		p.logger.Error("Failed to mark message as completed", "error", err, "messageID", msg.ID)
		return fmt.Errorf("failed to mark message as completed: %w", err)
	}

	p.logger.Info("Successfully processed message",
		"messageID", msg.ID,
		"aggregateID", msg.AggregateID,
		"eventType", msg.EventType)

	return nil
}
