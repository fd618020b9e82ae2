package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haleth/cardchat/internal/chat"
	"github.com/haleth/cardchat/internal/errors"
	"github.com/haleth/cardchat/internal/models"
	"github.com/haleth/cardchat/internal/repository/sqlite"
	"github.com/haleth/cardchat/internal/services"
	"github.com/haleth/cardchat/internal/store"
	"github.com/haleth/cardchat/internal/testutil"
	"github.com/haleth/cardchat/internal/testutil/mocks"
)

func newSessionFixture(t *testing.T, client chat.Client) (services.SessionService, *store.Store) {
	t.Helper()
	db := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.MustClose(t, db) })
	st := store.New(sqlite.NewConversationRepository(db))
	return services.NewSessionService(st, client), st
}

func cardCtx() models.CardContext {
	return models.CardContext{CardID: "card1", Front: "What is mitosis?", Back: "Cell division."}
}

func TestOpenSeedsCardContext(t *testing.T) {
	svc, _ := newSessionFixture(t, nil)

	view, err := svc.Open(context.Background(), cardCtx())
	require.NoError(t, err)
	assert.Equal(t, "card1", view.CardID)
	assert.Contains(t, view.Context, "What is mitosis?")
	assert.Contains(t, view.Context, "Cell division.")
	assert.Empty(t, view.Turns)
}

func TestSubmitAppendsBothTurns(t *testing.T) {
	client := new(mocks.MockChatClient)
	client.On("Send", mock.Anything, mock.MatchedBy(func(req chat.Request) bool {
		return len(req.Turns) == 1 && req.Turns[0].Role == models.RoleUser
	})).Return(&chat.Response{Text: "Mitosis splits one cell into two."}, nil)

	svc, st := newSessionFixture(t, client)

	turn, err := svc.Submit(context.Background(), cardCtx(), "Explain mitosis simply.")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, turn.Role)
	assert.Equal(t, "Mitosis splits one cell into two.", turn.Text)
	assert.Equal(t, 2, turn.Seq)

	conv, err := st.Load(context.Background(), "card1")
	require.NoError(t, err)
	require.Len(t, conv.Turns, 2)
	assert.Equal(t, models.RoleUser, conv.Turns[0].Role)
	assert.Equal(t, "Explain mitosis simply.", conv.Turns[0].Text)

	client.AssertExpectations(t)
}

func TestSubmitSendsCardContextToProvider(t *testing.T) {
	var got chat.Request
	client := new(mocks.MockChatClient)
	client.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(chat.Request) }).
		Return(&chat.Response{Text: "answer"}, nil)

	svc, _ := newSessionFixture(t, client)

	_, err := svc.Submit(context.Background(), cardCtx(), "hello")
	require.NoError(t, err)
	assert.Contains(t, got.Context, "What is mitosis?")
}

func TestSubmitChatFailureRetainsUserTurn(t *testing.T) {
	client := new(mocks.MockChatClient)
	client.On("Send", mock.Anything, mock.Anything).
		Return(nil, errors.NewTimeoutError(context.DeadlineExceeded))

	svc, st := newSessionFixture(t, client)

	_, err := svc.Submit(context.Background(), cardCtx(), "Explain mitosis.")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTimeout, errors.CodeOf(err))

	conv, err := st.Load(context.Background(), "card1")
	require.NoError(t, err)
	require.Len(t, conv.Turns, 1)
	assert.Equal(t, models.RoleUser, conv.Turns[0].Role)
}

func TestSubmitWithoutClientIsConfigMissing(t *testing.T) {
	svc, _ := newSessionFixture(t, nil)

	_, err := svc.Submit(context.Background(), cardCtx(), "hello")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigMissing, errors.CodeOf(err))

	// Open and Clear keep working without a configured client.
	_, err = svc.Open(context.Background(), cardCtx())
	assert.NoError(t, err)
	assert.NoError(t, svc.Clear(context.Background(), "card1"))
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	svc, _ := newSessionFixture(t, new(mocks.MockChatClient))

	_, err := svc.Submit(context.Background(), cardCtx(), "  \n ")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
}

// blockingClient parks every Send until released, so a second submit can be
// issued while the first is still in flight.
type blockingClient struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingClient) Send(ctx context.Context, req chat.Request) (*chat.Response, error) {
	c.entered <- struct{}{}
	<-c.release
	return &chat.Response{Text: "late answer"}, nil
}

func TestSubmitWhileInFlightIsBusy(t *testing.T) {
	client := &blockingClient{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	svc, _ := newSessionFixture(t, client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Submit(context.Background(), cardCtx(), "first question")
		assert.NoError(t, err)
	}()
	<-client.entered

	_, err := svc.Submit(context.Background(), cardCtx(), "second question")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBusy, errors.CodeOf(err))

	// A different card is not blocked by card1's in-flight submit.
	other := models.CardContext{CardID: "card2", Front: "front"}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Submit(context.Background(), other, "unrelated question")
		assert.NoError(t, err)
	}()
	<-client.entered

	close(client.release)
	wg.Wait()

	// The card is usable again once the first submit completes.
	_, err = svc.Submit(context.Background(), cardCtx(), "third question")
	require.NoError(t, err)
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	client := new(mocks.MockChatClient)
	client.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			// The chat window closes mid-request.
			cancel()
			sendCtx := args.Get(0).(context.Context)
			assert.NoError(t, sendCtx.Err(), "provider call must be detached from caller cancellation")
		}).
		Return(&chat.Response{Text: "answer"}, nil)

	svc, st := newSessionFixture(t, client)

	turn, err := svc.Submit(ctx, cardCtx(), "question")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, turn.Role)

	// The answer landed in the store even though the caller went away.
	conv, err := st.Load(context.Background(), "card1")
	require.NoError(t, err)
	assert.Len(t, conv.Turns, 2)
}
