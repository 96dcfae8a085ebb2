package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/greensmil/site_api/internal/config"
	"github.com/greensmil/site_api/internal/models"
	"github.com/greensmil/site_api/internal/utils"
)

// MaxListUsersLimit is the largest page the user pool returns.
const MaxListUsersLimit = 60

// IdentityProvider is the hosted user directory behind sign-in and the admin
// console.
type IdentityProvider interface {
	// SignIn checks credentials and returns the account's stable subject id.
	SignIn(ctx context.Context, username, password string) (string, error)
	GroupsForUser(ctx context.Context, username string) ([]string, error)
	ListUsers(ctx context.Context, limit int, paginationToken string) ([]models.User, string, error)
	CreateUser(ctx context.Context, email, temporaryPassword string) (string, error)
	UpdateUserAttributes(ctx context.Context, username string, attributes map[string]string) error
	DeleteUser(ctx context.Context, username string) error
	SetUserEnabled(ctx context.Context, username string, enabled bool) error
	AddUserToGroup(ctx context.Context, username, group string) error
	RemoveUserFromGroup(ctx context.Context, username, group string) error
	ListGroups(ctx context.Context) ([]models.Group, error)
	CreateGroup(ctx context.Context, name, description string) error
	DeleteGroup(ctx context.Context, name string) error
}

// cognitoAPI is the subset of the Cognito client used here.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GetUser(ctx context.Context, params *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	AdminListGroupsForUser(ctx context.Context, params *cip.AdminListGroupsForUserInput, optFns ...func(*cip.Options)) (*cip.AdminListGroupsForUserOutput, error)
	ListUsers(ctx context.Context, params *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
	AdminCreateUser(ctx context.Context, params *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
	AdminDeleteUser(ctx context.Context, params *cip.AdminDeleteUserInput, optFns ...func(*cip.Options)) (*cip.AdminDeleteUserOutput, error)
	AdminEnableUser(ctx context.Context, params *cip.AdminEnableUserInput, optFns ...func(*cip.Options)) (*cip.AdminEnableUserOutput, error)
	AdminDisableUser(ctx context.Context, params *cip.AdminDisableUserInput, optFns ...func(*cip.Options)) (*cip.AdminDisableUserOutput, error)
	AdminAddUserToGroup(ctx context.Context, params *cip.AdminAddUserToGroupInput, optFns ...func(*cip.Options)) (*cip.AdminAddUserToGroupOutput, error)
	AdminRemoveUserFromGroup(ctx context.Context, params *cip.AdminRemoveUserFromGroupInput, optFns ...func(*cip.Options)) (*cip.AdminRemoveUserFromGroupOutput, error)
	ListGroups(ctx context.Context, params *cip.ListGroupsInput, optFns ...func(*cip.Options)) (*cip.ListGroupsOutput, error)
	CreateGroup(ctx context.Context, params *cip.CreateGroupInput, optFns ...func(*cip.Options)) (*cip.CreateGroupOutput, error)
	DeleteGroup(ctx context.Context, params *cip.DeleteGroupInput, optFns ...func(*cip.Options)) (*cip.DeleteGroupOutput, error)
}

// CognitoProvider implements IdentityProvider on an Amazon Cognito user pool.
type CognitoProvider struct {
	api          cognitoAPI
	userPoolID   string
	clientID     string
	clientSecret string
}

// NewCognitoProvider loads AWS credentials from the environment and creates
// a provider for the configured user pool.
func NewCognitoProvider(ctx context.Context, cfg config.CognitoConfig) (*CognitoProvider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newCognitoProvider(cip.NewFromConfig(awsCfg), cfg), nil
}

func newCognitoProvider(api cognitoAPI, cfg config.CognitoConfig) *CognitoProvider {
	return &CognitoProvider{
		api:          api,
		userPoolID:   cfg.UserPoolID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

func (p *CognitoProvider) SignIn(ctx context.Context, username, password string) (string, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if p.clientSecret != "" {
		params["SECRET_HASH"] = utils.SecretHash(username, p.clientID, p.clientSecret)
	}

	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       ciptypes.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(p.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return "", mapCognitoError(err)
	}
	if out.AuthenticationResult == nil {
		return "", fmt.Errorf("%w: %s", utils.ErrChallengeRequired, out.ChallengeName)
	}

	user, err := p.api.GetUser(ctx, &cip.GetUserInput{AccessToken: out.AuthenticationResult.AccessToken})
	if err != nil {
		return "", fmt.Errorf("get signed-in user: %w", mapCognitoError(err))
	}
	for _, attr := range user.UserAttributes {
		if aws.ToString(attr.Name) == "sub" {
			return aws.ToString(attr.Value), nil
		}
	}
	return aws.ToString(user.Username), nil
}

func (p *CognitoProvider) GroupsForUser(ctx context.Context, username string) ([]string, error) {
	groups := make([]string, 0)
	var next *string
	for {
		out, err := p.api.AdminListGroupsForUser(ctx, &cip.AdminListGroupsForUserInput{
			UserPoolId: aws.String(p.userPoolID),
			Username:   aws.String(username),
			NextToken:  next,
		})
		if err != nil {
			return nil, mapCognitoError(err)
		}
		for _, g := range out.Groups {
			groups = append(groups, aws.ToString(g.GroupName))
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return groups, nil
		}
		next = out.NextToken
	}
}

func (p *CognitoProvider) ListUsers(ctx context.Context, limit int, paginationToken string) ([]models.User, string, error) {
	input := &cip.ListUsersInput{
		UserPoolId: aws.String(p.userPoolID),
		Limit:      aws.Int32(int32(clampLimit(limit))),
	}
	if paginationToken != "" {
		input.PaginationToken = aws.String(paginationToken)
	}

	out, err := p.api.ListUsers(ctx, input)
	if err != nil {
		return nil, "", mapCognitoError(err)
	}

	users := make([]models.User, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, toUser(u))
	}
	return users, aws.ToString(out.PaginationToken), nil
}

func (p *CognitoProvider) CreateUser(ctx context.Context, email, temporaryPassword string) (string, error) {
	out, err := p.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
		UserAttributes: []ciptypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
		},
		TemporaryPassword: aws.String(temporaryPassword),
		MessageAction:     ciptypes.MessageActionTypeSuppress,
	})
	if err != nil {
		return "", mapCognitoError(err)
	}
	if out.User != nil && out.User.Username != nil {
		return *out.User.Username, nil
	}
	return email, nil
}

func (p *CognitoProvider) UpdateUserAttributes(ctx context.Context, username string, attributes map[string]string) error {
	attrs := make([]ciptypes.AttributeType, 0, len(attributes))
	for name, value := range attributes {
		attrs = append(attrs, ciptypes.AttributeType{Name: aws.String(name), Value: aws.String(value)})
	}
	_, err := p.api.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(p.userPoolID),
		Username:       aws.String(username),
		UserAttributes: attrs,
	})
	return mapCognitoError(err)
}

func (p *CognitoProvider) DeleteUser(ctx context.Context, username string) error {
	_, err := p.api.AdminDeleteUser(ctx, &cip.AdminDeleteUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(username),
	})
	return mapCognitoError(err)
}

func (p *CognitoProvider) SetUserEnabled(ctx context.Context, username string, enabled bool) error {
	var err error
	if enabled {
		_, err = p.api.AdminEnableUser(ctx, &cip.AdminEnableUserInput{
			UserPoolId: aws.String(p.userPoolID),
			Username:   aws.String(username),
		})
	} else {
		_, err = p.api.AdminDisableUser(ctx, &cip.AdminDisableUserInput{
			UserPoolId: aws.String(p.userPoolID),
			Username:   aws.String(username),
		})
	}
	return mapCognitoError(err)
}

func (p *CognitoProvider) AddUserToGroup(ctx context.Context, username, group string) error {
	_, err := p.api.AdminAddUserToGroup(ctx, &cip.AdminAddUserToGroupInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(username),
		GroupName:  aws.String(group),
	})
	return mapCognitoError(err)
}

func (p *CognitoProvider) RemoveUserFromGroup(ctx context.Context, username, group string) error {
	_, err := p.api.AdminRemoveUserFromGroup(ctx, &cip.AdminRemoveUserFromGroupInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(username),
		GroupName:  aws.String(group),
	})
	return mapCognitoError(err)
}

func (p *CognitoProvider) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups := make([]models.Group, 0)
	var next *string
	for {
		out, err := p.api.ListGroups(ctx, &cip.ListGroupsInput{
			UserPoolId: aws.String(p.userPoolID),
			NextToken:  next,
		})
		if err != nil {
			return nil, mapCognitoError(err)
		}
		for _, g := range out.Groups {
			groups = append(groups, models.Group{
				GroupName:      aws.ToString(g.GroupName),
				Description:    aws.ToString(g.Description),
				Precedence:     g.Precedence,
				CreatedAt:      g.CreationDate,
				LastModifiedAt: g.LastModifiedDate,
			})
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return groups, nil
		}
		next = out.NextToken
	}
}

func (p *CognitoProvider) CreateGroup(ctx context.Context, name, description string) error {
	input := &cip.CreateGroupInput{
		UserPoolId: aws.String(p.userPoolID),
		GroupName:  aws.String(name),
	}
	if description != "" {
		input.Description = aws.String(description)
	}
	_, err := p.api.CreateGroup(ctx, input)
	return mapCognitoError(err)
}

func (p *CognitoProvider) DeleteGroup(ctx context.Context, name string) error {
	_, err := p.api.DeleteGroup(ctx, &cip.DeleteGroupInput{
		UserPoolId: aws.String(p.userPoolID),
		GroupName:  aws.String(name),
	})
	return mapCognitoError(err)
}

func toUser(u ciptypes.UserType) models.User {
	attrs := make(map[string]string, len(u.Attributes))
	for _, a := range u.Attributes {
		if a.Name != nil && a.Value != nil {
			attrs[*a.Name] = *a.Value
		}
	}
	return models.User{
		UserID:         aws.ToString(u.Username),
		Username:       aws.ToString(u.Username),
		Email:          attrs["email"],
		EmailVerified:  attrs["email_verified"] == "true",
		Enabled:        u.Enabled,
		Status:         string(u.UserStatus),
		CreatedAt:      u.UserCreateDate,
		LastModifiedAt: u.UserLastModifiedDate,
		Attributes:     attrs,
		Groups:         []string{},
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListUsersLimit {
		return MaxListUsersLimit
	}
	return limit
}

// mapCognitoError translates user pool exceptions into application errors.
func mapCognitoError(err error) error {
	if err == nil {
		return nil
	}
	var (
		notAuthorized  *ciptypes.NotAuthorizedException
		userNotFound   *ciptypes.UserNotFoundException
		notConfirmed   *ciptypes.UserNotConfirmedException
		resetRequired  *ciptypes.PasswordResetRequiredException
		usernameExists *ciptypes.UsernameExistsException
		groupExists    *ciptypes.GroupExistsException
		notFound       *ciptypes.ResourceNotFoundException
		invalidParam   *ciptypes.InvalidParameterException
		invalidPass    *ciptypes.InvalidPasswordException
	)
	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &notConfirmed), errors.As(err, &resetRequired):
		return errors.Join(utils.ErrInvalidCredentials, err)
	case errors.As(err, &userNotFound):
		return errors.Join(utils.ErrUserNotFound, err)
	case errors.As(err, &usernameExists):
		return errors.Join(utils.ErrUserExists, err)
	case errors.As(err, &groupExists):
		return errors.Join(utils.ErrGroupExists, err)
	case errors.As(err, &notFound):
		return errors.Join(utils.ErrGroupNotFound, err)
	case errors.As(err, &invalidParam), errors.As(err, &invalidPass):
		return errors.Join(utils.ErrInvalidInput, err)
	default:
		return fmt.Errorf("identity provider: %w", err)
	}
}
