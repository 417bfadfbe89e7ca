package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/internal/repository"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/mbeoliero/uq/pkg/errcode"
	"github.com/mbeoliero/uq/pkg/idgen"
	"github.com/mbeoliero/uq/pkg/metrics"
	"gorm.io/gorm"
)

// maxClockSkew bounds how far a client supplied created_at may drift from server time
const maxClockSkew = 5 * time.Minute

// MessagePusher interface for pushing message insert events
type MessagePusher interface {
	AsyncPushToUsers(event *entity.MessageEvent, userIds []string)
}

// MessageService handles message-related business logic
type MessageService struct {
	msgRepo  *repository.MessageRepo
	userRepo *repository.UserRepo
	ids      idgen.Generator
	pusher   MessagePusher
	now      func() time.Time
}

// NewMessageService creates a new MessageService
func NewMessageService(repos *repository.Repositories, ids idgen.Generator) *MessageService {
	return &MessageService{
		msgRepo:  repos.Message,
		userRepo: repos.User,
		ids:      ids,
		now:      time.Now,
	}
}

// SetPusher sets the message pusher
func (s *MessageService) SetPusher(pusher MessagePusher) {
	s.pusher = pusher
}

// SendMessageRequest represents send message request
type SendMessageRequest struct {
	ClientMsgId string `json:"client_msg_id"`
	RecipientId string `json:"recipient_id"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// normalizeContent trims content and enforces the length limit
func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errcode.ErrContentEmpty
	}
	if utf8.RuneCountInString(content) > constant.MaxContentRunes {
		return "", errcode.ErrContentTooLong
	}
	return content, nil
}

// resolveCreatedAt keeps the client timestamp when it is close to server time
func resolveCreatedAt(clientAt int64, now time.Time) int64 {
	serverAt := now.UnixMilli()
	if clientAt <= 0 {
		return serverAt
	}
	skew := time.Duration(clientAt-serverAt) * time.Millisecond
	if skew > maxClockSkew || skew < -maxClockSkew {
		return serverAt
	}
	return clientAt
}

// SendMessage sends a direct message
func (s *MessageService) SendMessage(ctx context.Context, senderId string, req *SendMessageRequest) (*entity.MessageInfo, error) {
	if req.ClientMsgId == "" || req.RecipientId == "" {
		return nil, errcode.ErrInvalidParam
	}
	if req.RecipientId == senderId {
		return nil, errcode.ErrInvalidRecipient
	}
	content, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}

	sender, err := s.userRepo.GetById(ctx, senderId)
	if err != nil {
		log.CtxError(ctx, "get sender failed: sender_id=%s, error=%v", senderId, err)
		return nil, errcode.ErrUserNotFound
	}

	// Check for idempotency
	existingMsg, err := s.msgRepo.GetByClientMsgId(ctx, senderId, req.ClientMsgId)
	if err != nil {
		log.CtxError(ctx, "check idempotency failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if existingMsg != nil {
		log.CtxDebug(ctx, "duplicate message: client_msg_id=%s", req.ClientMsgId)
		return existingMsg.ToMessageInfo(sender), nil
	}

	exists, err := s.userRepo.Exists(ctx, req.RecipientId)
	if err != nil {
		log.CtxError(ctx, "check recipient failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if !exists {
		return nil, errcode.ErrInvalidRecipient
	}

	id, err := s.ids.Next()
	if err != nil {
		log.CtxError(ctx, "generate message id failed: %v", err)
		return nil, errcode.ErrSendFailed
	}

	msg := &entity.Message{
		Id:          id,
		ClientMsgId: req.ClientMsgId,
		SenderId:    senderId,
		RecipientId: req.RecipientId,
		Content:     content,
		CreatedAt:   resolveCreatedAt(req.CreatedAt, s.now()),
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a retry of the same send
			if existing, getErr := s.msgRepo.GetByClientMsgId(ctx, senderId, req.ClientMsgId); getErr == nil && existing != nil {
				return existing.ToMessageInfo(sender), nil
			}
		}
		log.CtxError(ctx, "create message failed: %v", err)
		return nil, errcode.ErrSendFailed
	}
	metrics.MessagesSent.Inc()

	if s.pusher != nil {
		s.pusher.AsyncPushToUsers(msg.ToEvent(), []string{req.RecipientId, senderId})
	}

	log.CtxInfo(ctx, "message sent: id=%s, sender_id=%s, recipient_id=%s", msg.Id, senderId, req.RecipientId)
	return msg.ToMessageInfo(sender), nil
}

// ListMessagesRequest selects a page of the conversation with PartnerId
type ListMessagesRequest struct {
	PartnerId string `query:"partner_id"`
	Before    int64  `query:"before"`
	BeforeId  string `query:"before_id"`
	Limit     int    `query:"limit"`
}

func clampPageLimit(limit int) int {
	if limit <= 0 {
		return constant.DefaultPageLimit
	}
	if limit > constant.MaxPageLimit {
		return constant.MaxPageLimit
	}
	return limit
}

// ListMessages returns a page of the conversation newest first, with sender profiles
func (s *MessageService) ListMessages(ctx context.Context, userId string, req *ListMessagesRequest) ([]*entity.MessageInfo, error) {
	if req.PartnerId == "" {
		return nil, errcode.ErrInvalidParam
	}

	messages, err := s.msgRepo.ListConversation(ctx, &repository.ConversationQuery{
		UserA:    userId,
		UserB:    req.PartnerId,
		Before:   req.Before,
		BeforeId: req.BeforeId,
		Limit:    clampPageLimit(req.Limit),
	})
	if err != nil {
		log.CtxError(ctx, "list messages failed: %v", err)
		return nil, errcode.ErrPullFailed
	}

	senders, err := s.loadSenders(ctx, userId, req.PartnerId)
	if err != nil {
		log.CtxError(ctx, "load senders failed: %v", err)
		return nil, errcode.ErrPullFailed
	}

	infos := make([]*entity.MessageInfo, 0, len(messages))
	for _, msg := range messages {
		infos = append(infos, msg.ToMessageInfo(senders[msg.SenderId]))
	}
	return infos, nil
}

func (s *MessageService) loadSenders(ctx context.Context, userIds ...string) (map[string]*entity.User, error) {
	users, err := s.userRepo.GetByIds(ctx, userIds)
	if err != nil {
		return nil, err
	}
	byId := make(map[string]*entity.User, len(users))
	for _, u := range users {
		byId[u.Id] = u
	}
	return byId, nil
}

// GetMessage point-reads one message; the caller must be a participant
func (s *MessageService) GetMessage(ctx context.Context, userId, id string) (*entity.MessageInfo, error) {
	msg, err := s.getParticipantMessage(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	sender, err := s.userRepo.GetById(ctx, msg.SenderId)
	if err != nil {
		log.CtxWarn(ctx, "get sender failed: sender_id=%s, error=%v", msg.SenderId, err)
		sender = nil
	}
	return msg.ToMessageInfo(sender), nil
}

func (s *MessageService) getParticipantMessage(ctx context.Context, userId, id string) (*entity.Message, error) {
	if id == "" {
		return nil, errcode.ErrInvalidParam
	}
	msg, err := s.msgRepo.GetById(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrMessageNotFound
		}
		log.CtxError(ctx, "get message failed: id=%s, error=%v", id, err)
		return nil, errcode.ErrInternalServer
	}
	if !msg.IsParticipant(userId) {
		return nil, errcode.ErrNoPermission
	}
	return msg, nil
}

// MarkRead marks everything partnerId sent to userId as read
func (s *MessageService) MarkRead(ctx context.Context, userId, partnerId string) (int64, error) {
	if partnerId == "" {
		return 0, errcode.ErrInvalidParam
	}
	n, err := s.msgRepo.MarkRead(ctx, userId, partnerId, entity.NowUnixMilli())
	if err != nil {
		log.CtxError(ctx, "mark read failed: %v", err)
		return 0, errcode.ErrMarkReadFailed
	}
	return n, nil
}

// UnreadCounts returns unread counts keyed by sender id
func (s *MessageService) UnreadCounts(ctx context.Context, userId string) (map[string]int64, error) {
	counts, err := s.msgRepo.CountUnreadBySender(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "count unread failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	return counts, nil
}
