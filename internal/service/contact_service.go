package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/uq/internal/entity"
	"github.com/mbeoliero/uq/internal/repository"
	"github.com/mbeoliero/uq/pkg/constant"
	"github.com/mbeoliero/uq/pkg/errcode"
	"gorm.io/gorm"
)

// ContactService manages a user's contact list
type ContactService struct {
	contactRepo *repository.ContactRepo
	userRepo    *repository.UserRepo
}

// NewContactService creates a new ContactService
func NewContactService(repos *repository.Repositories) *ContactService {
	return &ContactService{
		contactRepo: repos.Contact,
		userRepo:    repos.User,
	}
}

// AddContactRequest adds the user owning UqNumber
type AddContactRequest struct {
	UqNumber int64  `json:"uq_number"`
	Nickname string `json:"nickname,omitempty"`
}

// AddContact adds a contact by UQ number
func (s *ContactService) AddContact(ctx context.Context, userId string, req *AddContactRequest) (*entity.ContactInfo, error) {
	if req.UqNumber <= 0 {
		return nil, errcode.ErrInvalidParam
	}

	target, err := s.userRepo.GetByUqNumber(ctx, req.UqNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrUserNotFound
		}
		log.CtxError(ctx, "get user by uq number failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if target.Id == userId {
		return nil, errcode.ErrCannotAddSelf
	}

	exists, err := s.contactRepo.Exists(ctx, userId, target.Id)
	if err != nil {
		log.CtxError(ctx, "check contact exists failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	if exists {
		return nil, errcode.ErrContactExists
	}

	contact := &entity.Contact{
		UserId:    userId,
		ContactId: target.Id,
		Nickname:  strings.TrimSpace(req.Nickname),
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errcode.ErrContactExists
		}
		log.CtxError(ctx, "create contact failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	log.CtxInfo(ctx, "contact added: user_id=%s, contact_id=%s", userId, target.Id)
	return contact.ToContactInfo(target), nil
}

// ListContacts returns the contacts of userId with live profiles, ordered by display name
func (s *ContactService) ListContacts(ctx context.Context, userId string, onlineOnly bool) ([]*entity.ContactInfo, error) {
	contacts, err := s.contactRepo.ListByUser(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "list contacts failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ContactId)
	}
	users, err := s.userRepo.GetByIds(ctx, ids)
	if err != nil {
		log.CtxError(ctx, "get contact users failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	byId := make(map[string]*entity.User, len(users))
	for _, u := range users {
		byId[u.Id] = u
	}

	return buildContactList(contacts, byId, onlineOnly), nil
}

func buildContactList(contacts []*entity.Contact, users map[string]*entity.User, onlineOnly bool) []*entity.ContactInfo {
	infos := make([]*entity.ContactInfo, 0, len(contacts))
	for _, c := range contacts {
		info := c.ToContactInfo(users[c.ContactId])
		if info.Contact == nil {
			continue // account removed
		}
		if onlineOnly && info.Contact.Status != constant.StatusOnline {
			continue
		}
		infos = append(infos, info)
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return strings.ToLower(infos[i].DisplayName()) < strings.ToLower(infos[j].DisplayName())
	})
	return infos
}

// RemoveContact removes contactId from userId's list
func (s *ContactService) RemoveContact(ctx context.Context, userId, contactId string) error {
	removed, err := s.contactRepo.Delete(ctx, userId, contactId)
	if err != nil {
		log.CtxError(ctx, "delete contact failed: %v", err)
		return errcode.ErrInternalServer
	}
	if !removed {
		return errcode.ErrContactNotFound
	}
	return nil
}
