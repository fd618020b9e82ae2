package sqlite

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/models"
	"github.com/haleth/cardchat/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

type conversationRepository struct {
	db *sql.DB
}

// NewConversationRepository creates a new ConversationRepository implementation
func NewConversationRepository(db *sql.DB) repository.ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Load(ctx context.Context, cardID string) (models.Conversation, error) {
	log := logger.FromContext(ctx).WithPrefix("conversation_repo")
	log.Debug("loading conversation: card_id=%s", cardID)

	conv := models.Conversation{CardID: cardID}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, card_id, seq, role, text, timestamp
FROM turns
WHERE card_id = ?
ORDER BY seq ASC
`, cardID)
	if err != nil {
		log.Error("failed to query turns: %v", err)
		return conv, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.ID, &t.CardID, &t.Seq, &t.Role, &t.Text, &t.Timestamp); err != nil {
			log.Error("failed to scan turn row: %v", err)
			return models.Conversation{CardID: cardID}, err
		}
		conv.Turns = append(conv.Turns, t)
	}
	log.Debug("loaded %d turns for card_id=%s", len(conv.Turns), cardID)
	return conv, rows.Err()
}

func (r *conversationRepository) AppendTurn(ctx context.Context, cardID string, turn models.Turn) (models.Turn, error) {
	log := logger.FromContext(ctx).WithPrefix("conversation_repo")
	log.Debug("appending turn: card_id=%s, role=%s", cardID, turn.Role)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return models.Turn{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Conversations are created lazily on first append.
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO conversations (card_id) VALUES (?)`, cardID); err != nil {
		log.Error("failed to upsert conversation: %v", err)
		return models.Turn{}, err
	}

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE card_id = ?`, cardID).Scan(&seq); err != nil {
		log.Error("failed to compute next seq: %v", err)
		return models.Turn{}, err
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO turns (card_id, seq, role, text, timestamp)
VALUES (?, ?, ?, ?, ?)
`, cardID, seq, turn.Role, turn.Text, turn.Timestamp)
	if err != nil {
		log.Error("failed to insert turn: %v", err)
		return models.Turn{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get turn id: %v", err)
		return models.Turn{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = CURRENT_TIMESTAMP WHERE card_id = ?`, cardID); err != nil {
		log.Error("failed to touch conversation: %v", err)
		return models.Turn{}, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit turn append: %v", err)
		return models.Turn{}, err
	}

	turn.ID = id
	turn.CardID = cardID
	turn.Seq = seq
	log.Debug("turn appended: id=%d, seq=%d", id, seq)
	return turn, nil
}

func (r *conversationRepository) Clear(ctx context.Context, cardID string) error {
	log := logger.FromContext(ctx).WithPrefix("conversation_repo")
	log.Debug("clearing conversation: card_id=%s", cardID)

	// Cascade removes the turns. Deleting an unknown card affects zero rows.
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE card_id = ?`, cardID)
	if err != nil {
		log.Error("failed to clear conversation: %v", err)
	}
	return err
}

func (r *conversationRepository) Exists(ctx context.Context, cardID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM turns WHERE card_id = ?)`, cardID).Scan(&exists)
	return exists, err
}

func (r *conversationRepository) List(ctx context.Context, filter models.ConversationFilter) ([]models.ConversationInfo, error) {
	log := logger.FromContext(ctx).WithPrefix("conversation_repo")
	log.Debug("listing conversations: limit=%d, offset=%d", filter.Limit, filter.Offset)

	// Inner join keeps cleared-but-recreated ids with no turns out of listings.
	query := sqlBuilder.Select("c.card_id", "COUNT(t.id)", "c.updated_at").
		From("conversations c").
		Join("turns t ON t.card_id = c.card_id").
		GroupBy("c.card_id", "c.updated_at").
		OrderBy("c.updated_at DESC")

	if filter.Since != nil {
		query = query.Where(squirrel.GtOrEq{"c.updated_at": *filter.Since})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build list query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list conversations: %v", err)
		return nil, err
	}
	defer rows.Close()

	var infos []models.ConversationInfo
	for rows.Next() {
		var info models.ConversationInfo
		if err := rows.Scan(&info.CardID, &info.TurnCount, &info.UpdatedAt); err != nil {
			log.Error("failed to scan conversation info: %v", err)
			return nil, err
		}
		infos = append(infos, info)
	}
	log.Debug("found %d conversations", len(infos))
	return infos, rows.Err()
}

func (r *conversationRepository) DeleteNotIn(ctx context.Context, liveIDs []string) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("conversation_repo")
	log.Debug("pruning conversations not in live set of %d cards", len(liveIDs))

	query := sqlBuilder.Delete("conversations").
		Where(squirrel.NotEq{"card_id": liveIDs})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build prune query: %v", err)
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to prune conversations: %v", err)
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	log.Info("pruned %d orphaned conversations", n)
	return n, nil
}
