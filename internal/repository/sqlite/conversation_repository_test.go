package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/haleth/cardchat/internal/models"
	"github.com/haleth/cardchat/internal/repository"
	"github.com/haleth/cardchat/internal/repository/sqlite"
	"github.com/haleth/cardchat/internal/testutil"
)

type ConversationRepositorySuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.ConversationRepository
}

func (s *ConversationRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewConversationRepository(s.db)
}

func (s *ConversationRepositorySuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *ConversationRepositorySuite) appendTurn(cardID string, role models.Role, text string) models.Turn {
	turn, err := s.repo.AppendTurn(context.Background(), cardID, models.Turn{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	s.Require().NoError(err)
	return turn
}

func (s *ConversationRepositorySuite) TestLoadEmptyConversation() {
	conv, err := s.repo.Load(context.Background(), "card1")
	s.Require().NoError(err)
	s.Equal("card1", conv.CardID)
	s.Empty(conv.Turns)
}

func (s *ConversationRepositorySuite) TestAppendAndLoadPreservesOrder() {
	ctx := context.Background()

	s.appendTurn("card1", models.RoleUser, "What is mitosis?")
	s.appendTurn("card1", models.RoleAssistant, "Mitosis is cell division.")
	s.appendTurn("card1", models.RoleUser, "And meiosis?")

	conv, err := s.repo.Load(ctx, "card1")
	s.Require().NoError(err)
	s.Require().Len(conv.Turns, 3)

	s.Equal("What is mitosis?", conv.Turns[0].Text)
	s.Equal("Mitosis is cell division.", conv.Turns[1].Text)
	s.Equal("And meiosis?", conv.Turns[2].Text)

	s.Equal(1, conv.Turns[0].Seq)
	s.Equal(2, conv.Turns[1].Seq)
	s.Equal(3, conv.Turns[2].Seq)
}

func (s *ConversationRepositorySuite) TestAppendAssignsSequentialIDs() {
	t1 := s.appendTurn("card1", models.RoleUser, "first")
	t2 := s.appendTurn("card1", models.RoleAssistant, "second")

	s.Equal("card1", t1.CardID)
	s.Equal(1, t1.Seq)
	s.Equal(2, t2.Seq)
	s.Greater(t2.ID, t1.ID)
}

func (s *ConversationRepositorySuite) TestCardIsolation() {
	ctx := context.Background()

	s.appendTurn("card1", models.RoleUser, "question for card1")

	conv, err := s.repo.Load(ctx, "card2")
	s.Require().NoError(err)
	s.Empty(conv.Turns)
}

func (s *ConversationRepositorySuite) TestClearRemovesTurns() {
	ctx := context.Background()

	s.appendTurn("card1", models.RoleUser, "hello")
	s.appendTurn("card1", models.RoleAssistant, "hi")

	s.Require().NoError(s.repo.Clear(ctx, "card1"))

	conv, err := s.repo.Load(ctx, "card1")
	s.Require().NoError(err)
	s.Empty(conv.Turns)

	// Cascade removed the turn rows, not just the conversation row.
	var count int
	s.Require().NoError(s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns WHERE card_id = ?`, "card1").Scan(&count))
	s.Equal(0, count)
}

func (s *ConversationRepositorySuite) TestClearUnknownCardIsNoOp() {
	s.Require().NoError(s.repo.Clear(context.Background(), "never-seen"))
}

func (s *ConversationRepositorySuite) TestExists() {
	ctx := context.Background()

	exists, err := s.repo.Exists(ctx, "card1")
	s.Require().NoError(err)
	s.False(exists)

	s.appendTurn("card1", models.RoleUser, "hello")

	exists, err = s.repo.Exists(ctx, "card1")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *ConversationRepositorySuite) TestListSkipsEmptyConversations() {
	ctx := context.Background()

	s.appendTurn("card1", models.RoleUser, "q1")
	s.appendTurn("card1", models.RoleAssistant, "a1")
	s.appendTurn("card2", models.RoleUser, "q2")
	s.Require().NoError(s.repo.Clear(ctx, "card2"))

	infos, err := s.repo.List(ctx, models.ConversationFilter{})
	s.Require().NoError(err)
	s.Require().Len(infos, 1)
	s.Equal("card1", infos[0].CardID)
	s.Equal(2, infos[0].TurnCount)
}

func (s *ConversationRepositorySuite) TestListHonorsLimitAndOffset() {
	ctx := context.Background()

	s.appendTurn("card1", models.RoleUser, "q")
	s.appendTurn("card2", models.RoleUser, "q")
	s.appendTurn("card3", models.RoleUser, "q")

	infos, err := s.repo.List(ctx, models.ConversationFilter{Limit: 2})
	s.Require().NoError(err)
	s.Len(infos, 2)

	infos, err = s.repo.List(ctx, models.ConversationFilter{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Len(infos, 1)
}

func (s *ConversationRepositorySuite) TestDeleteNotIn() {
	ctx := context.Background()

	s.appendTurn("card1", models.RoleUser, "q")
	s.appendTurn("card2", models.RoleUser, "q")
	s.appendTurn("card3", models.RoleUser, "q")

	n, err := s.repo.DeleteNotIn(ctx, []string{"card1", "card3"})
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	exists, err := s.repo.Exists(ctx, "card2")
	s.Require().NoError(err)
	s.False(exists)

	exists, err = s.repo.Exists(ctx, "card1")
	s.Require().NoError(err)
	s.True(exists)
}

func TestConversationRepositorySuite(t *testing.T) {
	suite.Run(t, new(ConversationRepositorySuite))
}
