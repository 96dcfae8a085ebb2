package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/utils"
)

// Actor identifies the admin performing an operation.
type Actor struct {
	IP        string
	Username  string
	UserAgent string
}

func (a Actor) meta() security.Meta {
	return security.Meta{UserAgent: a.UserAgent}
}

// UserService administers user pool accounts. Mutations are recorded as
// admin access events.
type UserService struct {
	idp       IdentityProvider
	events    *security.Log
	startedAt time.Time
	now       func() time.Time
}

func NewUserService(idp IdentityProvider, events *security.Log) *UserService {
	return &UserService{idp: idp, events: events, startedAt: time.Now(), now: time.Now}
}

// ListUsers returns one page of users with their groups. limit is clamped to
// [1, 60]; 0 means 60.
func (s *UserService) ListUsers(ctx context.Context, limit int, paginationToken string) (*models.UserPage, error) {
	users, next, err := s.idp.ListUsers(ctx, clampLimit(limit), paginationToken)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	s.attachGroups(ctx, users)
	return &models.UserPage{
		Users:        users,
		NextToken:    next,
		HasMore:      next != "",
		TotalFetched: len(users),
	}, nil
}

// attachGroups loads group membership concurrently. A failed lookup leaves
// the user with no groups.
func (s *UserService) attachGroups(ctx context.Context, users []models.User) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, 8)
	for i := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(u *models.User) {
			defer wg.Done()
			defer func() { <-sem }()
			groups, err := s.idp.GroupsForUser(ctx, u.Username)
			if err != nil {
				log.Warn().Err(err).Str("user_hash", security.HashUserID(u.Username)).Msg("Failed to load user groups")
				u.Groups = []string{}
				return
			}
			u.Groups = groups
		}(&users[i])
	}
	wg.Wait()
}

// CountUsers walks every page and returns the exact total.
func (s *UserService) CountUsers(ctx context.Context) (int, error) {
	total := 0
	token := ""
	for {
		users, next, err := s.idp.ListUsers(ctx, MaxListUsersLimit, token)
		if err != nil {
			return 0, fmt.Errorf("count users: %w", err)
		}
		total += len(users)
		if next == "" {
			return total, nil
		}
		token = next
	}
}

// ApproximateUserCount counts the first page only.
func (s *UserService) ApproximateUserCount(ctx context.Context) (*models.UserCount, error) {
	users, next, err := s.idp.ListUsers(ctx, MaxListUsersLimit, "")
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	return &models.UserCount{Count: len(users), IsApproximate: next != ""}, nil
}

// ActiveUsers counts users on the first page modified in the last 24 hours.
// Errors are logged and reported as zero.
func (s *UserService) ActiveUsers(ctx context.Context) int {
	users, _, err := s.idp.ListUsers(ctx, MaxListUsersLimit, "")
	if err != nil {
		log.Error().Err(err).Msg("Failed to count active users")
		return 0
	}
	since := s.now().Add(-24 * time.Hour)
	active := 0
	for _, u := range users {
		if u.LastModifiedAt != nil && u.LastModifiedAt.After(since) {
			active++
		}
	}
	return active
}

// SystemStatus probes the identity provider.
func (s *UserService) SystemStatus(ctx context.Context) models.SystemStatus {
	status := models.SystemStatus{
		Status:    "Online",
		Uptime:    s.now().Sub(s.startedAt).Truncate(time.Second).String(),
		CheckedAt: s.now().UTC().Format(time.RFC3339),
	}
	if _, _, err := s.idp.ListUsers(ctx, 1, ""); err != nil {
		log.Error().Err(err).Msg("System health check failed")
		status.Status = "Degraded"
		status.Uptime = "N/A"
	}
	return status
}

// CreateUser creates a verified account with a temporary password, generating
// one when none is given. Invitation messages are suppressed.
func (s *UserService) CreateUser(ctx context.Context, actor Actor, req models.CreateUserRequest) (*models.CreateUserResponse, error) {
	email := strings.TrimSpace(req.Email)
	password := req.TemporaryPassword
	generated := false
	if password == "" {
		var err error
		if password, err = utils.GenerateTemporaryPassword(16); err != nil {
			return nil, err
		}
		generated = true
	}

	username, err := s.idp.CreateUser(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.events.AdminAccess(actor.IP, actor.Username, "create-user:"+username, actor.meta())

	resp := &models.CreateUserResponse{Username: username}
	if generated {
		resp.TemporaryPassword = password
	}
	return resp, nil
}

func (s *UserService) UpdateUser(ctx context.Context, actor Actor, username string, attributes map[string]string) error {
	if len(attributes) == 0 {
		return utils.ErrInvalidInput
	}
	if err := s.idp.UpdateUserAttributes(ctx, username, attributes); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.events.AdminAccess(actor.IP, actor.Username, "update-user:"+username, actor.meta())
	return nil
}

func (s *UserService) DeleteUser(ctx context.Context, actor Actor, username string) error {
	if err := s.idp.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.events.AdminAccess(actor.IP, actor.Username, "delete-user:"+username, actor.meta())
	return nil
}

func (s *UserService) SetUserEnabled(ctx context.Context, actor Actor, username string, enabled bool) error {
	if err := s.idp.SetUserEnabled(ctx, username, enabled); err != nil {
		return fmt.Errorf("set user enabled: %w", err)
	}
	action := "disable-user:"
	if enabled {
		action = "enable-user:"
	}
	s.events.AdminAccess(actor.IP, actor.Username, action+username, actor.meta())
	return nil
}

func (s *UserService) AddUserToGroup(ctx context.Context, actor Actor, username, group string) error {
	if err := s.idp.AddUserToGroup(ctx, username, group); err != nil {
		return fmt.Errorf("add user to group: %w", err)
	}
	s.events.AdminAccess(actor.IP, actor.Username, "add-user-to-group:"+username+":"+group, actor.meta())
	return nil
}

func (s *UserService) RemoveUserFromGroup(ctx context.Context, actor Actor, username, group string) error {
	if err := s.idp.RemoveUserFromGroup(ctx, username, group); err != nil {
		return fmt.Errorf("remove user from group: %w", err)
	}
	s.events.AdminAccess(actor.IP, actor.Username, "remove-user-from-group:"+username+":"+group, actor.meta())
	return nil
}
