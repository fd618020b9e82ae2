package worker

import (
	"context"

	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/store"
)

// PruneConversationsJob removes conversations for cards the host no longer
// has. The host supplies its full set of live card ids; anything else in the
// store is an orphan left behind by deck edits and is deleted.
type PruneConversationsJob struct {
	Store       *store.Store
	LiveCardIDs []string
}

func (j *PruneConversationsJob) Name() string { return "prune_conversations" }

func (j *PruneConversationsJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("live_cards", len(j.LiveCardIDs))
	log.Info("starting conversation prune")

	n, err := j.Store.Prune(ctx, j.LiveCardIDs)
	if err != nil {
		log.Error("prune failed: %v", err)
		return err
	}

	log.Info("prune removed %d orphaned conversations", n)
	return nil
}
