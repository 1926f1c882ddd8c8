package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/eventbus"
	"github.com/agentspine/spine/internal/persistence/models"
	"github.com/agentspine/spine/internal/session"
)

func TestMirrorSessionLifecycleViaBus(t *testing.T) {
	store := newTestStore(t)
	mirror := NewMirror(store, zap.NewNop())
	bus := eventbus.NewInMemoryBus(zap.NewNop(), 8)
	defer bus.Close()
	mirror.Attach(bus)

	src := session.NewBus()
	eventbus.BridgeSession("s1", src, bus)

	src.Emit(session.EventSessionStart, nil)
	src.Emit(session.EventSessionEnd, nil)

	require.Eventually(t, func() bool {
		var row models.SessionModel
		if err := store.db.First(&row, "id = ?", "s1").Error; err != nil {
			return false
		}
		return row.EndedAt != nil
	}, time.Second, 10*time.Millisecond)
}

func TestMirrorSyncTurnsAppendsOnlyNewOnes(t *testing.T) {
	store := newTestStore(t)
	mirror := NewMirror(store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.StartSession(ctx, "s1", "", "", time.Now()))

	turns := []session.Turn{session.NewUserTurn("hi", time.Now())}
	require.NoError(t, mirror.SyncTurns(ctx, "s1", turns))

	turns = append(turns, session.NewSystemTurn("sys", time.Now()))
	require.NoError(t, mirror.SyncTurns(ctx, "s1", turns))

	count, err := store.LoadTurnCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
