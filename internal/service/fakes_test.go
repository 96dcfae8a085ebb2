package service

import (
	"context"
	"sync"

	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/utils"
)

type fakeIDP struct {
	mu sync.Mutex

	passwords map[string]string
	groups    map[string][]string
	pages     [][]models.User
	listErr   error

	created []string
	deleted []string
	enabled map[string]bool
	grpOps  []string
}

func newFakeIDP() *fakeIDP {
	return &fakeIDP{
		passwords: map[string]string{},
		groups:    map[string][]string{},
		enabled:   map[string]bool{},
	}
}

func (f *fakeIDP) SignIn(_ context.Context, username, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pw, ok := f.passwords[username]
	if !ok {
		return "", utils.ErrUserNotFound
	}
	if pw != password {
		return "", utils.ErrInvalidCredentials
	}
	return "sub-" + username, nil
}

func (f *fakeIDP) GroupsForUser(_ context.Context, username string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.groups[username]...), nil
}

// ListUsers serves f.pages; the token is the index of the page to return.
func (f *fakeIDP) ListUsers(_ context.Context, limit int, token string) ([]models.User, string, error) {
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	idx := 0
	if token != "" {
		idx = int(token[0] - '0')
	}
	if idx >= len(f.pages) {
		return []models.User{}, "", nil
	}
	page := append([]models.User{}, f.pages[idx]...)
	if len(page) > limit {
		page = page[:limit]
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = string(rune('0' + idx + 1))
	}
	return page, next, nil
}

func (f *fakeIDP) CreateUser(_ context.Context, email, _ string) (string, error) {
	f.created = append(f.created, email)
	return email, nil
}

func (f *fakeIDP) UpdateUserAttributes(context.Context, string, map[string]string) error { return nil }

func (f *fakeIDP) DeleteUser(_ context.Context, username string) error {
	if username == "ghost" {
		return utils.ErrUserNotFound
	}
	f.deleted = append(f.deleted, username)
	return nil
}

func (f *fakeIDP) SetUserEnabled(_ context.Context, username string, enabled bool) error {
	f.enabled[username] = enabled
	return nil
}

func (f *fakeIDP) AddUserToGroup(_ context.Context, username, group string) error {
	f.grpOps = append(f.grpOps, "add:"+username+":"+group)
	return nil
}

func (f *fakeIDP) RemoveUserFromGroup(_ context.Context, username, group string) error {
	f.grpOps = append(f.grpOps, "remove:"+username+":"+group)
	return nil
}

func (f *fakeIDP) ListGroups(context.Context) ([]models.Group, error) {
	return []models.Group{{GroupName: "admin"}}, nil
}

func (f *fakeIDP) CreateGroup(_ context.Context, name, _ string) error {
	if name == "admin" {
		return utils.ErrGroupExists
	}
	f.grpOps = append(f.grpOps, "create:"+name)
	return nil
}

func (f *fakeIDP) DeleteGroup(_ context.Context, name string) error {
	f.grpOps = append(f.grpOps, "delete:"+name)
	return nil
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []EmailMessage
	failFor map[string]error
}

func (f *fakeSender) Send(_ context.Context, msg EmailMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[msg.To]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

type fakeCaptcha struct {
	result CaptchaResult
	calls  int
}

func (f *fakeCaptcha) Verify(context.Context, string, string) CaptchaResult {
	f.calls++
	return f.result
}
