package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"gameserver_panel/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

const cognitoProviderName = "cognito"

// Challenge parameter keys sent by Cognito.
const (
	paramUserIDForSRP       = "USER_ID_FOR_SRP"
	paramUserAttributes     = "userAttributes"
	paramRequiredAttributes = "requiredAttributes"
)

// CognitoAPI is the subset of the Cognito user pool client used by the provider.
// This allows for mocking the AWS SDK client in tests.
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
}

// Cognito authenticates against an Amazon Cognito user pool app client using the
// USER_PASSWORD_AUTH flow.
type Cognito struct {
	client       CognitoAPI
	clientID     string
	clientSecret string
	log          *logger.Logger
}

// NewCognito builds a provider with an anonymous AWS SDK client for region.
// The user pool operations used here do not need AWS credentials.
func NewCognito(ctx context.Context, region, clientID, clientSecret string, log *logger.Logger) (*Cognito, error) {
	if clientID == "" {
		return nil, errors.New("cognito client id is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewCognitoWithClient(cip.NewFromConfig(cfg), clientID, clientSecret, log), nil
}

// NewCognitoWithClient uses the provided client. Useful for tests.
func NewCognitoWithClient(client CognitoAPI, clientID, clientSecret string, log *logger.Logger) *Cognito {
	return &Cognito{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
		log:          logger.OrNop(log).Named("cognito"),
	}
}

// Name returns the provider identifier used by the registry.
func (c *Cognito) Name() string { return cognitoProviderName }

// InitiateAuth starts USER_PASSWORD_AUTH for username.
func (c *Cognito) InitiateAuth(ctx context.Context, username, password string) (Result, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	c.addSecretHash(params, username)

	out, err := c.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return Result{}, newAuthError(err)
	}
	return c.toResult(username, out.AuthenticationResult, out.ChallengeName, out.ChallengeParameters, out.Session)
}

// RespondNewPassword answers NEW_PASSWORD_REQUIRED. No attributes are updated.
func (c *Cognito) RespondNewPassword(ctx context.Context, ch Challenge, newPassword string) (Result, error) {
	if ch.Name != ChallengeNewPassword {
		return Result{}, &AuthError{Message: fmt.Sprintf("unsupported challenge %q", ch.Name)}
	}
	responses := map[string]string{
		"USERNAME":     ch.Username,
		"NEW_PASSWORD": newPassword,
	}
	c.addSecretHash(responses, ch.Username)

	out, err := c.client.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      types.ChallengeNameTypeNewPasswordRequired,
		ClientId:           aws.String(c.clientID),
		Session:            aws.String(ch.Session),
		ChallengeResponses: responses,
	})
	if err != nil {
		return Result{}, newAuthError(err)
	}
	return c.toResult(ch.Username, out.AuthenticationResult, out.ChallengeName, out.ChallengeParameters, out.Session)
}

func (c *Cognito) toResult(
	username string,
	authResult *types.AuthenticationResultType,
	challenge types.ChallengeNameType,
	challengeParams map[string]string,
	session *string,
) (Result, error) {
	if authResult != nil {
		token := aws.ToString(authResult.IdToken)
		if token == "" {
			return Result{}, &AuthError{Message: "cognito did not return an id token"}
		}
		return Result{Outcome: Authenticated, Token: token}, nil
	}

	if challenge != types.ChallengeNameTypeNewPasswordRequired {
		return Result{}, &AuthError{Message: fmt.Sprintf("unsupported challenge %q", string(challenge))}
	}

	ch := &Challenge{
		Name:     ChallengeNewPassword,
		Username: username,
		Session:  aws.ToString(session),
	}
	if id := challengeParams[paramUserIDForSRP]; id != "" {
		ch.Username = id
	}
	if raw := challengeParams[paramUserAttributes]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &ch.UserAttributes); err != nil {
			c.log.Infow("cognito_user_attributes_unreadable", "err", err)
		}
	}
	if raw := challengeParams[paramRequiredAttributes]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &ch.RequiredAttributes); err != nil {
			c.log.Infow("cognito_required_attributes_unreadable", "err", err)
		}
	}
	return Result{Outcome: ChallengeRequired, Challenge: ch}, nil
}

func (c *Cognito) addSecretHash(params map[string]string, username string) {
	if c.clientSecret == "" {
		return
	}
	params["SECRET_HASH"] = secretHash(c.clientSecret, username, c.clientID)
}

// secretHash is Base64(HMAC_SHA256(clientSecret, username + clientID)).
func secretHash(clientSecret, username, clientID string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
