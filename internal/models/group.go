package models

import "time"

// Group is a user pool group.
type Group struct {
	GroupName      string     `json:"groupName"`
	Description    string     `json:"description,omitempty"`
	Precedence     *int32     `json:"precedence,omitempty"`
	CreatedAt      *time.Time `json:"creationDate,omitempty"`
	LastModifiedAt *time.Time `json:"lastModifiedDate,omitempty"`
}

// CreateGroupRequest is the body of POST /v1/admin/groups.
type CreateGroupRequest struct {
	GroupName   string `json:"groupName" binding:"required,max=128"`
	Description string `json:"description" binding:"max=2048"`
}
