package models

import "time"

// User is a user pool account as shown in the admin console.
type User struct {
	UserID         string            `json:"userId"`
	Username       string            `json:"username"`
	Email          string            `json:"email,omitempty"`
	EmailVerified  bool              `json:"emailVerified"`
	Enabled        bool              `json:"enabled"`
	Status         string            `json:"userStatus"`
	CreatedAt      *time.Time        `json:"userCreateDate,omitempty"`
	LastModifiedAt *time.Time        `json:"userLastModifiedDate,omitempty"`
	Attributes     map[string]string `json:"attributes"`
	Groups         []string          `json:"groups"`
}

// UserPage is one page of ListUsers.
type UserPage struct {
	Users        []User `json:"users"`
	NextToken    string `json:"nextToken,omitempty"`
	HasMore      bool   `json:"hasMore"`
	TotalFetched int    `json:"totalFetched"`
}

// UserCount is a user total that may be a lower bound.
type UserCount struct {
	Count         int  `json:"count"`
	IsApproximate bool `json:"isApproximate"`
}

// SystemStatus reports whether the identity provider is reachable.
type SystemStatus struct {
	Status    string `json:"status"` // Online or Degraded
	Uptime    string `json:"uptime"`
	CheckedAt string `json:"checkedAt"`
}

// CreateUserRequest is the body of POST /v1/admin/users. A temporary
// password is generated when none is given.
type CreateUserRequest struct {
	Email             string `json:"email" binding:"required,email"`
	TemporaryPassword string `json:"temporaryPassword"`
}

// CreateUserResponse echoes the created account.
type CreateUserResponse struct {
	Username          string `json:"username"`
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

// UpdateUserRequest is the body of PUT /v1/admin/users/:username.
type UpdateUserRequest struct {
	Attributes map[string]string `json:"attributes" binding:"required"`
}

// GroupMembershipRequest is the body of POST /v1/admin/users/:username/groups.
type GroupMembershipRequest struct {
	GroupName string `json:"groupName" binding:"required"`
}
