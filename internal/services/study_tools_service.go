package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/haleth/cardchat/internal/chat"
	"github.com/haleth/cardchat/internal/errors"
	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/models"
	"github.com/haleth/cardchat/internal/store"
)

// StudyToolsService derives study material from a stored conversation:
// a prose summary, or new flashcards covering what came up in the chat.
// Neither operation writes turns back to the store.
type StudyToolsService interface {
	Summarize(ctx context.Context, cardID string) (string, error)
	GenerateCards(ctx context.Context, cardID string, count int) ([]models.GeneratedCard, error)
}

type studyToolsService struct {
	store  *store.Store
	client chat.Client
}

// NewStudyToolsService creates a new StudyToolsService.
func NewStudyToolsService(st *store.Store, client chat.Client) StudyToolsService {
	return &studyToolsService{store: st, client: client}
}

const summarySystem = "You are a helpful study assistant. Create clear, organized study notes " +
	"from conversations using markdown formatting."

const summaryPrompt = `You are summarizing a chat conversation between a user and an AI assistant about study material.

Focus ONLY on the back-and-forth conversation between "You:" and "AI:" messages. Capture the main explanations and information discussed during the chat, primarily what the AI explained in response to the user's questions. Do not include information from the original flashcard unless it was specifically discussed.

%s

Conversation Summary:`

func (s *studyToolsService) Summarize(ctx context.Context, cardID string) (string, error) {
	log := logger.FromContext(ctx)
	log.Debug("summarizing conversation: card_id=%s", cardID)

	transcript, err := s.transcript(ctx, cardID)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Send(ctx, chat.Request{
		System: summarySystem,
		Turns: []models.Turn{{
			Role: models.RoleUser,
			Text: fmt.Sprintf(summaryPrompt, transcript),
		}},
	})
	if err != nil {
		log.Warn("summary generation failed: %v", err)
		return "", err
	}

	log.Info("conversation summarized: card_id=%s, summary_len=%d", cardID, len(resp.Text))
	return resp.Text, nil
}

const generateSystem = "You are a helpful study assistant. Create clear, educational flashcards " +
	"based on conversation content using the specified format."

const generatePrompt = `Based on this conversation between a user and AI assistant, generate exactly %d high-quality flashcards focusing on what the user learned during the discussion.

Focus ONLY on new information, explanations, or insights that came up during the conversation. Do not create cards about the original flashcard content unless it was specifically discussed or expanded upon.

Each card MUST have exactly "Front:" and "Back:" labels, for example:
Front: What is the primary use of Acyclovir?
Back: Acyclovir is primarily used for the treatment of herpes simplex virus and varicella-zoster virus infections.

%s

Generate exactly %d flashcards:`

func (s *studyToolsService) GenerateCards(ctx context.Context, cardID string, count int) ([]models.GeneratedCard, error) {
	log := logger.FromContext(ctx)

	if count <= 0 {
		count = 5
	}
	if count > 20 {
		count = 20
	}
	log.Debug("generating flashcards: card_id=%s, count=%d", cardID, count)

	transcript, err := s.transcript(ctx, cardID)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Send(ctx, chat.Request{
		System: generateSystem,
		Turns: []models.Turn{{
			Role: models.RoleUser,
			Text: fmt.Sprintf(generatePrompt, count, transcript, count),
		}},
	})
	if err != nil {
		log.Warn("flashcard generation failed: %v", err)
		return nil, err
	}

	cards := ParseGeneratedCards(resp.Text)
	if len(cards) == 0 {
		return nil, errors.NewProviderError("provider response contained no parseable flashcards", nil)
	}

	log.Info("generated %d flashcards from conversation: card_id=%s", len(cards), cardID)
	return cards, nil
}

// transcript renders the stored conversation as the "You:"/"AI:" text the
// prompts expect. An empty conversation is a NOT_FOUND, not a provider call.
func (s *studyToolsService) transcript(ctx context.Context, cardID string) (string, error) {
	if s.client == nil {
		return "", errors.NewConfigMissingError("chat API key")
	}

	conv, err := s.store.Load(ctx, cardID)
	if err != nil {
		return "", err
	}
	if conv.Empty() {
		return "", errors.NewNotFoundError("conversation", cardID)
	}

	var sb strings.Builder
	for _, t := range conv.Turns {
		if t.Role == models.RoleUser {
			sb.WriteString("You: ")
		} else {
			sb.WriteString("AI: ")
		}
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// ParseGeneratedCards extracts Front:/Back: pairs from model output. Lines
// between a Back: label and the next Front: label are folded into the back
// text; cards missing either side are dropped.
func ParseGeneratedCards(text string) []models.GeneratedCard {
	var cards []models.GeneratedCard
	var current *models.GeneratedCard

	flush := func() {
		if current != nil && current.Front != "" && current.Back != "" {
			cards = append(cards, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Front:"):
			flush()
			current = &models.GeneratedCard{Front: strings.TrimSpace(strings.TrimPrefix(line, "Front:"))}
		case strings.HasPrefix(line, "Back:"):
			if current != nil {
				current.Back = strings.TrimSpace(strings.TrimPrefix(line, "Back:"))
			}
		case line != "" && current != nil && current.Back != "":
			current.Back += " " + line
		}
	}
	flush()
	return cards
}
