package service

import (
	"context"
	"strings"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/uq/internal/ai"
	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/internal/repository"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/mbeoliero/uq/pkg/errcode"
)

const (
	defaultSummaryLimit = 20
	maxSummaryLimit     = 100
)

// AIService translates and summarizes messages through a text completion provider.
// A nil completer disables the features and every call falls back.
type AIService struct {
	msgRepo   *repository.MessageRepo
	userRepo  *repository.UserRepo
	completer ai.Completer
	messages  *MessageService
}

// NewAIService creates a new AIService
func NewAIService(repos *repository.Repositories, messages *MessageService, completer ai.Completer) *AIService {
	return &AIService{
		msgRepo:   repos.Message,
		userRepo:  repos.User,
		completer: completer,
		messages:  messages,
	}
}

// TranslateRequest represents translate request
type TranslateRequest struct {
	MessageId      string `json:"message_id"`
	TargetLanguage string `json:"target_language"`
}

// TranslateResponse carries the translated text, or the original when Translated is false
type TranslateResponse struct {
	MessageId  string `json:"message_id"`
	Text       string `json:"text"`
	Translated bool   `json:"translated"`
}

func targetLanguage(raw string) string {
	if lang := strings.TrimSpace(raw); lang != "" {
		return lang
	}
	return constant.DefaultTranslateLanguage
}

// Translate translates one message the caller participates in and stores the result
func (s *AIService) Translate(ctx context.Context, userId string, req *TranslateRequest) (*TranslateResponse, error) {
	lang := targetLanguage(req.TargetLanguage)
	msg, err := s.messages.getParticipantMessage(ctx, userId, req.MessageId)
	if err != nil {
		return nil, err
	}

	text, ok := ai.Translate(ctx, s.completer, msg.Content, lang)
	if ok {
		if err := s.msgRepo.UpdateTranslation(ctx, msg.Id, text); err != nil {
			log.CtxWarn(ctx, "store translation failed: id=%s, error=%v", msg.Id, err)
		}
	}

	return &TranslateResponse{
		MessageId:  msg.Id,
		Text:       text,
		Translated: ok,
	}, nil
}

// SummarizeRequest represents summarize request
type SummarizeRequest struct {
	PartnerId string `json:"partner_id"`
	Limit     int    `json:"limit"`
}

// SummarizeResponse carries the summary; empty when unavailable
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize summarizes the latest messages exchanged with a partner
func (s *AIService) Summarize(ctx context.Context, userId string, req *SummarizeRequest) (*SummarizeResponse, error) {
	if req.PartnerId == "" {
		return nil, errcode.ErrInvalidParam
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSummaryLimit
	}
	if limit > maxSummaryLimit {
		limit = maxSummaryLimit
	}

	messages, err := s.msgRepo.ListConversation(ctx, &repository.ConversationQuery{
		UserA: userId,
		UserB: req.PartnerId,
		Limit: limit,
	})
	if err != nil {
		log.CtxError(ctx, "list messages for summary failed: %v", err)
		return nil, errcode.ErrPullFailed
	}
	if len(messages) == 0 {
		return &SummarizeResponse{}, nil
	}

	users, err := s.messages.loadSenders(ctx, userId, req.PartnerId)
	if err != nil {
		log.CtxError(ctx, "load senders failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	return &SummarizeResponse{
		Summary: ai.Summarize(ctx, s.completer, transcriptLines(messages, users)),
	}, nil
}

// transcriptLines renders newest-first messages as chronological "name: text" lines
func transcriptLines(messages []*entity.Message, users map[string]*entity.User) []string {
	lines := make([]string, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		name := msg.SenderId
		if u, ok := users[msg.SenderId]; ok && u.Username != "" {
			name = u.Username
		}
		lines = append(lines, name+": "+msg.Content)
	}
	return lines
}
