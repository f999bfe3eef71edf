package ps

import (
	"fmt"

	"github.com/nickyhof/PrimitiveDB/core"
)

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// Operation is a single pending document change.
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

// TransactionBuilder batches several document writes into a single commit.
type TransactionBuilder struct {
	persistence *Persistence
	operations  []Operation
	started     bool
}

// BeginTransaction creates a new transaction builder for batching operations
func (p *Persistence) BeginTransaction() (*TransactionBuilder, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	return &TransactionBuilder{
		persistence: p,
		operations:  make([]Operation, 0),
		started:     true,
	}, nil
}

// AddWrite queues a full replacement of the document at path.
func (tb *TransactionBuilder) AddWrite(path string, data []byte) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}

	tb.operations = append(tb.operations, Operation{Type: WriteOp, Path: path, Data: data})
	return nil
}

// AddDelete queues removal of the document at path.
func (tb *TransactionBuilder) AddDelete(path string) error {
	if !tb.started {
		return fmt.Errorf("transaction not started")
	}

	tb.operations = append(tb.operations, Operation{Type: DeleteOp, Path: path})
	return nil
}

// Commit applies all queued operations in one commit.
func (tb *TransactionBuilder) Commit(identity core.Identity, message string) (Transaction, error) {
	if !tb.started {
		return Transaction{}, fmt.Errorf("transaction not started")
	}

	if len(tb.operations) == 0 {
		return Transaction{}, ErrNoChanges
	}

	tb.persistence.mu.Lock()
	defer tb.persistence.mu.Unlock()

	changes := make([]TreeChange, 0, len(tb.operations))
	for _, op := range tb.operations {
		switch op.Type {
		case WriteOp:
			blobHash, err := tb.persistence.createBlob(op.Data)
			if err != nil {
				return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", op.Path, err)
			}
			changes = append(changes, TreeChange{Path: op.Path, BlobHash: blobHash})
		case DeleteOp:
			changes = append(changes, TreeChange{Path: op.Path, IsDelete: true})
		}
	}

	if message == "" {
		message = fmt.Sprintf("Batch transaction: %d operation(s)", len(tb.operations))
	}

	txn, err := tb.persistence.commitChanges(changes, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	tb.started = false
	tb.operations = nil

	return txn, nil
}

// Rollback discards all batched operations without committing
func (tb *TransactionBuilder) Rollback() {
	tb.started = false
	tb.operations = nil
}

// OperationCount returns the number of pending operations
func (tb *TransactionBuilder) OperationCount() int {
	return len(tb.operations)
}
