package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/localnerve/macroai/internal/config"
	"github.com/localnerve/macroai/internal/logger"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/types"
)

// IdentityProvider is the subset of the Cognito client the auth service uses.
type IdentityProvider interface {
	GetUser(ctx context.Context, params *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
}

// CognitoUser is the identity behind an access token.
type CognitoUser struct {
	Username      string            `json:"username"`
	Email         string            `json:"email"`
	EmailVerified bool              `json:"emailVerified"`
	Attributes    map[string]string `json:"attributes"`
}

// AuthTokens are the tokens issued by the identity provider.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int32  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// LoginResult is returned from a successful login.
type LoginResult struct {
	Tokens AuthTokens   `json:"tokens"`
	User   *models.User `json:"user"`
}

// AuthService authenticates requests against AWS Cognito.
type AuthService struct {
	client       IdentityProvider
	clientID     string
	clientSecret string
	users        UserRegistrar
	log          *logger.Logger
}

// NewCognitoClient builds a Cognito client for the configured region.
func NewCognitoClient(ctx context.Context, cfg *config.Config) (*cip.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cip.NewFromConfig(awsCfg), nil
}

func NewAuthService(client IdentityProvider, cfg *config.Config, users UserRegistrar, log *logger.Logger) *AuthService {
	return &AuthService{
		client:       client,
		clientID:     cfg.CognitoClientID,
		clientSecret: cfg.CognitoClientSecret,
		users:        users,
		log:          log,
	}
}

// GetAuthUser resolves an access token to its Cognito user.
func (s *AuthService) GetAuthUser(ctx context.Context, accessToken string) (*CognitoUser, error) {
	const op = "authService - getAuthUser"
	if accessToken == "" {
		return nil, types.NewUnauthorizedError(op, "access token is required")
	}

	out, err := s.client.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return nil, identityError(op, err)
	}
	if out == nil || aws.ToString(out.Username) == "" {
		return nil, types.NewUnauthorizedError(op, "token does not identify a user")
	}

	user := &CognitoUser{
		Username:   aws.ToString(out.Username),
		Attributes: make(map[string]string, len(out.UserAttributes)),
	}
	for _, attr := range out.UserAttributes {
		user.Attributes[aws.ToString(attr.Name)] = aws.ToString(attr.Value)
	}
	user.Email = user.Attributes["email"]
	user.EmailVerified, _ = strconv.ParseBool(user.Attributes["email_verified"])
	return user, nil
}

// Authenticate returns the application user id for an access token,
// provisioning the local user the first time the identity is seen.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	cognitoUser, err := s.GetAuthUser(ctx, accessToken)
	if err != nil {
		return "", err
	}

	if _, err := s.users.GetUserByID(ctx, cognitoUser.Username); err != nil {
		if !types.IsKind(err, types.KindNotFound) {
			return "", err
		}
		if _, err := s.users.RegisterOrLoginUserByID(ctx, cognitoUser.Username, cognitoUser.Email, cognitoUser.EmailVerified); err != nil {
			return "", err
		}
	}
	return cognitoUser.Username, nil
}

// Login exchanges a password for tokens and records the login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "authService - login"
	if email == "" || password == "" {
		return nil, types.NewValidationError(op, "email and password are required")
	}

	params := map[string]string{
		"USERNAME": email,
		"PASSWORD": password,
	}
	if s.clientSecret != "" {
		params["SECRET_HASH"] = secretHash(email, s.clientID, s.clientSecret)
	}

	tokens, err := s.initiateAuth(ctx, op, ciptypes.AuthFlowTypeUserPasswordAuth, params)
	if err != nil {
		return nil, err
	}

	cognitoUser, err := s.GetAuthUser(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	if cognitoUser.Email == "" {
		cognitoUser.Email = email
	}

	user, err := s.users.RegisterOrLoginUserByID(ctx, cognitoUser.Username, cognitoUser.Email, cognitoUser.EmailVerified)
	if err != nil {
		return nil, err
	}

	s.log.Info("User logged in", "user_id", user.ID)
	return &LoginResult{Tokens: *tokens, User: user}, nil
}

// Refresh exchanges a refresh token for new access tokens. The username is
// only needed when the app client has a secret.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, username string) (*AuthTokens, error) {
	const op = "authService - refresh"
	if refreshToken == "" {
		return nil, types.NewValidationError(op, "refresh token is required")
	}

	params := map[string]string{"REFRESH_TOKEN": refreshToken}
	if s.clientSecret != "" {
		if username == "" {
			return nil, types.NewValidationError(op, "username is required")
		}
		params["SECRET_HASH"] = secretHash(username, s.clientID, s.clientSecret)
	}

	tokens, err := s.initiateAuth(ctx, op, ciptypes.AuthFlowTypeRefreshTokenAuth, params)
	if err != nil {
		return nil, err
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

func (s *AuthService) initiateAuth(ctx context.Context, op string, flow ciptypes.AuthFlowType, params map[string]string) (*AuthTokens, error) {
	out, err := s.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       flow,
		ClientId:       aws.String(s.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, identityError(op, err)
	}
	if out.ChallengeName != "" {
		return nil, types.NewUnauthorizedError(op, fmt.Sprintf("additional authentication required: %s", out.ChallengeName))
	}
	result := out.AuthenticationResult
	if result == nil || aws.ToString(result.AccessToken) == "" {
		return nil, types.NewInternalError(op, "identity provider returned no tokens", nil)
	}

	return &AuthTokens{
		AccessToken:  aws.ToString(result.AccessToken),
		IDToken:      aws.ToString(result.IdToken),
		RefreshToken: aws.ToString(result.RefreshToken),
		ExpiresIn:    result.ExpiresIn,
		TokenType:    aws.ToString(result.TokenType),
	}, nil
}

// secretHash is the Cognito SECRET_HASH for app clients with a secret.
func secretHash(username, clientID, clientSecret string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// identityError maps Cognito failures onto error kinds.
func identityError(op string, err error) error {
	var notAuthorized *ciptypes.NotAuthorizedException
	var notFound *ciptypes.UserNotFoundException
	var notConfirmed *ciptypes.UserNotConfirmedException
	var resetRequired *ciptypes.PasswordResetRequiredException
	var invalidParam *ciptypes.InvalidParameterException

	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &notFound):
		return &types.Error{Kind: types.KindUnauthorized, Op: op, Message: "invalid or expired credentials", Err: err}
	case errors.As(err, &notConfirmed):
		return &types.Error{Kind: types.KindForbidden, Op: op, Message: "user is not confirmed", Err: err}
	case errors.As(err, &resetRequired):
		return &types.Error{Kind: types.KindForbidden, Op: op, Message: "password reset required", Err: err}
	case errors.As(err, &invalidParam):
		return &types.Error{Kind: types.KindValidation, Op: op, Message: "invalid authentication request", Err: err}
	}
	return types.NewInternalError(op, "identity provider request failed", err)
}
