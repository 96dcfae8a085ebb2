package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/security"
	"github.com/greensmil/site_api/internal/utils"
)

func users(prefix string, n int, modified time.Time) []models.User {
	out := make([]models.User, n)
	for i := range out {
		m := modified
		out[i] = models.User{Username: fmt.Sprintf("%s%d", prefix, i), LastModifiedAt: &m}
	}
	return out
}

var admin = Actor{IP: "10.0.0.1", Username: "root", UserAgent: "console"}

func TestUserService_ListUsersAttachesGroups(t *testing.T) {
	idp := newFakeIDP()
	idp.pages = [][]models.User{users("u", 3, time.Now()), users("v", 2, time.Now())}
	idp.groups["u1"] = []string{"editors"}
	svc := NewUserService(idp, security.NewLog(security.Config{}))

	page, err := svc.ListUsers(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Len(t, page.Users, 3)
	assert.True(t, page.HasMore)
	assert.Equal(t, "1", page.NextToken)
	assert.Equal(t, []string{"editors"}, page.Users[1].Groups)
	assert.Empty(t, page.Users[0].Groups)

	page, err = svc.ListUsers(context.Background(), 0, page.NextToken)
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.False(t, page.HasMore)
}

func TestUserService_Counts(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	idp := newFakeIDP()
	idp.pages = [][]models.User{
		append(users("recent", 2, time.Now()), users("old", 3, old)...),
		users("w", 4, old),
	}
	svc := NewUserService(idp, security.NewLog(security.Config{}))

	total, err := svc.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, total)

	approx, err := svc.ApproximateUserCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.UserCount{Count: 5, IsApproximate: true}, *approx)

	assert.Equal(t, 2, svc.ActiveUsers(context.Background()))
}

func TestUserService_SystemStatus(t *testing.T) {
	idp := newFakeIDP()
	svc := NewUserService(idp, security.NewLog(security.Config{}))
	assert.Equal(t, "Online", svc.SystemStatus(context.Background()).Status)

	idp.listErr = errors.New("unreachable")
	status := svc.SystemStatus(context.Background())
	assert.Equal(t, "Degraded", status.Status)
	assert.Equal(t, "N/A", status.Uptime)
	assert.Zero(t, svc.ActiveUsers(context.Background()))
}

func TestUserService_MutationsAreAudited(t *testing.T) {
	idp := newFakeIDP()
	events := security.NewLog(security.Config{})
	svc := NewUserService(idp, events)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, admin, models.CreateUserRequest{Email: " new@example.com "})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", created.Username)
	assert.NotEmpty(t, created.TemporaryPassword, "a generated password is returned once")

	created, err = svc.CreateUser(ctx, admin, models.CreateUserRequest{Email: "b@example.com", TemporaryPassword: "Given-Passw0rd!"})
	require.NoError(t, err)
	assert.Empty(t, created.TemporaryPassword)

	require.NoError(t, svc.UpdateUser(ctx, admin, "b@example.com", map[string]string{"name": "B"}))
	require.NoError(t, svc.SetUserEnabled(ctx, admin, "b@example.com", false))
	require.NoError(t, svc.AddUserToGroup(ctx, admin, "b@example.com", "editors"))
	require.NoError(t, svc.RemoveUserFromGroup(ctx, admin, "b@example.com", "editors"))
	require.NoError(t, svc.DeleteUser(ctx, admin, "b@example.com"))

	assert.False(t, idp.enabled["b@example.com"])
	assert.Equal(t, []string{"b@example.com"}, idp.deleted)

	audit := events.ByType(security.EventAdminAccess, 20)
	require.Len(t, audit, 7)
	assert.Equal(t, "root", audit[0].UserID)
	assert.Equal(t, "10.0.0.1", audit[0].IP)
	assert.Equal(t, security.AdminAccessDetails{Action: "delete-user:b@example.com"}, audit[6].Details)
}

func TestUserService_FailedMutationIsNotAudited(t *testing.T) {
	events := security.NewLog(security.Config{})
	svc := NewUserService(newFakeIDP(), events)

	err := svc.DeleteUser(context.Background(), admin, "ghost")
	assert.ErrorIs(t, err, utils.ErrUserNotFound)

	err = svc.UpdateUser(context.Background(), admin, "someone", nil)
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	assert.Zero(t, events.Len())
}

func TestGroupService(t *testing.T) {
	idp := newFakeIDP()
	events := security.NewLog(security.Config{})
	svc := NewGroupService(idp, events)
	ctx := context.Background()

	groups, err := svc.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	require.NoError(t, svc.CreateGroup(ctx, admin, models.CreateGroupRequest{GroupName: " editors "}))
	assert.ErrorIs(t, svc.CreateGroup(ctx, admin, models.CreateGroupRequest{GroupName: "admin"}), utils.ErrGroupExists)
	assert.ErrorIs(t, svc.CreateGroup(ctx, admin, models.CreateGroupRequest{GroupName: "  "}), utils.ErrInvalidInput)
	require.NoError(t, svc.DeleteGroup(ctx, admin, "editors"))

	assert.Equal(t, []string{"create:editors", "delete:editors"}, idp.grpOps)
	assert.Len(t, events.ByType(security.EventAdminAccess, 10), 2)
}

func TestSecurityService(t *testing.T) {
	events := security.NewLog(security.Config{})
	svc := NewSecurityService(events)

	for i := 0; i < 12; i++ {
		events.RateLimitExceeded("5.5.5.5", "/v1/contact", security.Meta{})
	}

	report := svc.CheckIP("5.5.5.5")
	assert.Equal(t, 12, report.RecentEvents)
	assert.True(t, report.Suspicious)
	assert.False(t, svc.CheckIP("4.4.4.4").Suspicious)

	assert.Len(t, svc.Dashboard().RateLimitEvents, 12)

	assert.Zero(t, svc.ClearOld(admin), "nothing is past retention yet")
	assert.Len(t, events.ByType(security.EventAdminAccess, 10), 1)
}
