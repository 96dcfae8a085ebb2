package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/utils"
)

// GroupService administers user pool groups.
type GroupService struct {
	idp    IdentityProvider
	events *security.Log
}

func NewGroupService(idp IdentityProvider, events *security.Log) *GroupService {
	return &GroupService{idp: idp, events: events}
}

func (s *GroupService) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups, err := s.idp.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (s *GroupService) CreateGroup(ctx context.Context, actor Actor, req models.CreateGroupRequest) error {
	name := strings.TrimSpace(req.GroupName)
	if name == "" {
		return utils.ErrInvalidInput
	}
	if err := s.idp.CreateGroup(ctx, name, strings.TrimSpace(req.Description)); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	s.events.AdminAccess(actor.IP, actor.Username, "create-group:"+name, actor.meta())
	return nil
}

func (s *GroupService) DeleteGroup(ctx context.Context, actor Actor, name string) error {
	if err := s.idp.DeleteGroup(ctx, name); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	s.events.AdminAccess(actor.IP, actor.Username, "delete-group:"+name, actor.meta())
	return nil
}
