package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haleth/cardchat/internal/errors"
	"github.com/haleth/cardchat/internal/models"
	"github.com/haleth/cardchat/internal/repository/sqlite"
	"github.com/haleth/cardchat/internal/store"
	"github.com/haleth/cardchat/internal/testutil"
	"github.com/haleth/cardchat/internal/testutil/mocks"
)

func newTestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	db := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.MustClose(t, db) })
	return store.New(sqlite.NewConversationRepository(db), opts...)
}

func TestAppendAndLoad_OrderAndTimestamps(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	conv, err := st.Append(ctx, "card1", models.RoleUser, "What is mitosis?")
	require.NoError(t, err)
	require.Len(t, conv.Turns, 1)

	conv, err = st.Append(ctx, "card1", models.RoleAssistant, "Mitosis is cell division.")
	require.NoError(t, err)
	require.Len(t, conv.Turns, 2)

	loaded, err := st.Load(ctx, "card1")
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, models.RoleUser, loaded.Turns[0].Role)
	assert.Equal(t, models.RoleAssistant, loaded.Turns[1].Role)
	assert.False(t, loaded.Turns[1].Timestamp.Before(loaded.Turns[0].Timestamp),
		"timestamps must be non-decreasing")
}

func TestAppend_ClampsBackwardClock(t *testing.T) {
	ctx := context.Background()
	times := []time.Time{
		time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC),
		time.Date(2025, 6, 1, 12, 0, 5, 0, time.UTC), // wall clock moved backward
	}
	i := 0
	st := newTestStore(t, store.WithClock(func() time.Time {
		ts := times[i]
		if i < len(times)-1 {
			i++
		}
		return ts
	}))

	_, err := st.Append(ctx, "card1", models.RoleUser, "first")
	require.NoError(t, err)

	conv, err := st.Append(ctx, "card1", models.RoleAssistant, "second")
	require.NoError(t, err)

	first, second := conv.Turns[0].Timestamp, conv.Turns[1].Timestamp
	assert.True(t, second.Equal(first), "backward clock reading must be clamped to the previous timestamp")
}

func TestAppend_RejectsInvalidTurns(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.Append(ctx, "card1", models.RoleUser, "valid question")
	require.NoError(t, err)

	_, err = st.Append(ctx, "card1", models.RoleUser, "   ")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))

	_, err = st.Append(ctx, "card1", models.Role("system"), "not a stored role")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))

	_, err = st.Append(ctx, "", models.RoleUser, "no card id")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))

	// Rejections leave the conversation unchanged.
	conv, err := st.Load(ctx, "card1")
	require.NoError(t, err)
	assert.Len(t, conv.Turns, 1)
}

func TestCardIsolation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.Append(ctx, "card1", models.RoleUser, "What is mitosis?")
	require.NoError(t, err)
	_, err = st.Append(ctx, "card1", models.RoleAssistant, "Mitosis is...")
	require.NoError(t, err)

	conv, err := st.Load(ctx, "card2")
	require.NoError(t, err)
	assert.Empty(t, conv.Turns)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.Append(ctx, "card1", models.RoleUser, "hello")
	require.NoError(t, err)

	require.NoError(t, st.Clear(ctx, "card1"))

	conv, err := st.Load(ctx, "card1")
	require.NoError(t, err)
	assert.Empty(t, conv.Turns)

	// Clearing a never-seen id is a no-op, not an error.
	require.NoError(t, st.Clear(ctx, "never-seen"))
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	exists, err := st.Exists(ctx, "card1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = st.Append(ctx, "card1", models.RoleUser, "hello")
	require.NoError(t, err)

	exists, err = st.Exists(ctx, "card1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoad_DegradesCorruptRecordToEmpty(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockConversationRepository)
	repo.On("Load", mock.Anything, "card1").
		Return(models.Conversation{}, fmt.Errorf("record corrupted"))

	st := store.New(repo)

	conv, err := st.Load(ctx, "card1")
	require.NoError(t, err, "a damaged history must never block the user")
	assert.Equal(t, "card1", conv.CardID)
	assert.Empty(t, conv.Turns)
}

func TestAppend_SurfacesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockConversationRepository)
	repo.On("Load", mock.Anything, "card1").
		Return(models.Conversation{CardID: "card1"}, nil)
	repo.On("AppendTurn", mock.Anything, "card1", mock.Anything).
		Return(models.Turn{}, fmt.Errorf("disk full"))

	st := store.New(repo)

	_, err := st.Append(ctx, "card1", models.RoleUser, "hello")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePersistenceFailure, errors.CodeOf(err))
}

func TestAppend_FailedWriteDoesNotClaimTheTurn(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockConversationRepository)
	prior := models.Conversation{
		CardID: "card1",
		Turns:  []models.Turn{{ID: 1, CardID: "card1", Seq: 1, Role: models.RoleUser, Text: "first"}},
	}
	repo.On("Load", mock.Anything, "card1").Return(prior, nil)
	repo.On("AppendTurn", mock.Anything, "card1", mock.Anything).
		Return(models.Turn{}, fmt.Errorf("database is locked"))

	st := store.New(repo)

	_, err := st.Append(ctx, "card1", models.RoleAssistant, "never stored")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePersistenceFailure, errors.CodeOf(err))

	// The earlier turn is untouched by the failed append.
	conv, err := st.Load(ctx, "card1")
	require.NoError(t, err)
	assert.Len(t, conv.Turns, 1)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	for _, id := range []string{"card1", "card2", "card3"} {
		_, err := st.Append(ctx, id, models.RoleUser, "hello")
		require.NoError(t, err)
	}

	n, err := st.Prune(ctx, []string{"card1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	exists, err := st.Exists(ctx, "card1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPrune_RejectsEmptyLiveSet(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Prune(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.Append(ctx, "card1", models.RoleUser, "q")
	require.NoError(t, err)
	_, err = st.Append(ctx, "card1", models.RoleAssistant, "a")
	require.NoError(t, err)

	infos, err := st.List(ctx, models.ConversationFilter{})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "card1", infos[0].CardID)
	assert.Equal(t, 2, infos[0].TurnCount)
}

func TestConcurrentAppends_NeverInterleaveWithinACard(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	const goroutines = 8
	done := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			_, err := st.Append(ctx, "card1", models.RoleUser, fmt.Sprintf("question %d", i))
			done <- err
		}(i)
	}
	for i := 0; i < goroutines; i++ {
		require.NoError(t, <-done)
	}

	conv, err := st.Load(ctx, "card1")
	require.NoError(t, err)
	require.Len(t, conv.Turns, goroutines)
	for i, turn := range conv.Turns {
		assert.Equal(t, i+1, turn.Seq)
		if i > 0 {
			assert.False(t, turn.Timestamp.Before(conv.Turns[i-1].Timestamp))
		}
	}
}
