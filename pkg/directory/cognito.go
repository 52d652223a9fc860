package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/platinummonkey/tally/pkg/directory")

// Config holds Cognito user pool connection settings.
type Config struct {
	Region     string
	Endpoint   string // non-empty for cognito-local
	AccessKey  string
	SecretKey  string
	UserPoolID string
}

// CognitoDirectory resolves identities against a Cognito user pool.
type CognitoDirectory struct {
	client     *cognitoidentityprovider.Client
	userPoolID string
}

// NewCognitoDirectory creates a directory backed by Cognito.
func NewCognitoDirectory(ctx context.Context, cfg Config) (*CognitoDirectory, error) {
	if cfg.UserPoolID == "" {
		return nil, fmt.Errorf("user pool id is required")
	}

	var awsCfg aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := cognitoidentityprovider.NewFromConfig(awsCfg, func(o *cognitoidentityprovider.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &CognitoDirectory{
		client:     client,
		userPoolID: cfg.UserPoolID,
	}, nil
}

// Lookup fetches one user by owner id (the pool username).
func (d *CognitoDirectory) Lookup(ctx context.Context, ownerID string) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "Cognito.AdminGetUser",
		trace.WithAttributes(attribute.String("cognito.user_pool_id", d.userPoolID)),
	)
	defer span.End()

	out, err := d.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(ownerID),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, fmt.Errorf("failed to look up %s: %w", ownerID, err)
	}

	identity := Identity{
		OwnerID:       ownerID,
		AccountStatus: string(out.UserStatus),
		Enabled:       out.Enabled,
		CreatedAt:     out.UserCreateDate,
	}
	applyAttributes(&identity, out.UserAttributes)

	if identity.Email == "" {
		// Entries without an email cannot be reconciled across sources;
		// treat them like an unknown identity.
		return nil, ErrNotFound
	}
	return &identity, nil
}

// ListAll enumerates the whole user pool, page by page.
func (d *CognitoDirectory) ListAll(ctx context.Context) ([]Identity, error) {
	ctx, span := tracer.Start(ctx, "Cognito.ListUsers",
		trace.WithAttributes(attribute.String("cognito.user_pool_id", d.userPoolID)),
	)
	defer span.End()

	var identities []Identity
	input := &cognitoidentityprovider.ListUsersInput{
		UserPoolId: aws.String(d.userPoolID),
	}

	for {
		out, err := d.client.ListUsers(ctx, input)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list failed")
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		for _, user := range out.Users {
			identity := Identity{
				AccountStatus: string(user.UserStatus),
				Enabled:       user.Enabled,
				CreatedAt:     user.UserCreateDate,
			}
			if user.Username != nil {
				identity.OwnerID = *user.Username
			}
			applyAttributes(&identity, user.Attributes)
			identities = append(identities, identity)
		}

		if out.PaginationToken == nil {
			break
		}
		input.PaginationToken = out.PaginationToken
	}

	span.SetAttributes(attribute.Int("cognito.users_returned", len(identities)))
	return identities, nil
}

func applyAttributes(identity *Identity, attrs []types.AttributeType) {
	for _, attr := range attrs {
		if attr.Name == nil || attr.Value == nil {
			continue
		}
		switch *attr.Name {
		case "email":
			identity.Email = *attr.Value
		case "name":
			identity.DisplayName = *attr.Value
		}
	}
}
