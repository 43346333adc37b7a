// Package settlement hands committed deferred transfers to the external
// settlement system: a Redis queue feeds a worker that emits ISO 20022
// pacs.008 messages. Marking pending legs settled stays with the external
// batch process.
package settlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/vaultbank/backend/internal/models"
)

type Queue struct {
	rdb  *redis.Client
	name string
}

func NewQueue(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

// Enqueue pushes a committed transfer onto the settlement queue. Called
// only after the storage transaction commits; the transfer does not depend
// on the enqueue succeeding.
func (q *Queue) Enqueue(ctx context.Context, txn *models.Transaction) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("marshal transaction %s: %w", txn.ID, err)
	}
	return q.rdb.RPush(ctx, q.name, data).Err()
}

// Dequeue pops the oldest queued transfer. Returns nil with no error when
// the queue is empty.
func (q *Queue) Dequeue(ctx context.Context) (*models.Transaction, error) {
	data, err := q.rdb.LPop(ctx, q.name).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("pop settlement queue: %w", err)
	}

	var txn models.Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("decode queued transaction: %w", err)
	}
	return &txn, nil
}
