// audit/service_test.go
package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanguard-api/vanguard/model"
	"github.com/vanguard-api/vanguard/util"
)

// memRepo collects entries in memory.
type memRepo struct {
	mu   sync.Mutex
	logs []AuditLog
}

func (r *memRepo) Record(_ context.Context, log AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *memRepo) Query(context.Context, time.Time, time.Time, string, string) ([]AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditLog(nil), r.logs...), nil
}

func (r *memRepo) snapshot() []AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditLog(nil), r.logs...)
}

func TestMutationEventsAreRecorded(t *testing.T) {
	repo := &memRepo{}
	bus := util.NewEventBus()
	RegisterSubscribers(bus, NewService(repo))

	bus.Publish(context.Background(), "item.updated", &model.Item{ID: "item-1", OwnerID: "owner-1"})

	require.Eventually(t, func() bool {
		return len(repo.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	entry := repo.snapshot()[0]
	assert.Equal(t, "item", entry.ResourceType)
	assert.Equal(t, "updated", entry.Action)
	assert.Equal(t, "item-1", entry.ResourceID)
	assert.Equal(t, "owner-1", entry.Actor)
	assert.False(t, entry.Timestamp.IsZero())
	assert.NotEmpty(t, entry.Details)
}

func TestRejectedRequestsAreRecorded(t *testing.T) {
	repo := &memRepo{}
	bus := util.NewEventBus()
	RegisterSubscribers(bus, NewService(repo))

	bus.Publish(context.Background(), "request.rejected", util.RejectedRequest{
		Method:  "GET",
		Path:    "/api/v1/items/1",
		Status:  429,
		Subject: "alice",
	})

	require.Eventually(t, func() bool {
		return len(repo.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	entry := repo.snapshot()[0]
	assert.Equal(t, "request", entry.ResourceType)
	assert.Equal(t, "rejected", entry.Action)
	assert.Equal(t, "GET /api/v1/items/1", entry.ResourceID)
	assert.Equal(t, "alice", entry.Actor)
}

func TestUnrelatedEventsAreIgnored(t *testing.T) {
	repo := &memRepo{}
	bus := util.NewEventBus()
	RegisterSubscribers(bus, NewService(repo))

	bus.Publish(context.Background(), "something.else", "payload")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, repo.snapshot())
}
