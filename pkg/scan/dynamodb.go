package scan

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/platinummonkey/tally/pkg/scan")

// Config holds DynamoDB connection settings.
type Config struct {
	Region    string
	Endpoint  string // non-empty for DynamoDB Local
	AccessKey string
	SecretKey string
}

// DynamoDBScanner reads usage tables with paginated full scans.
type DynamoDBScanner struct {
	client *dynamodb.Client
}

// NewDynamoDBScanner creates a scanner backed by DynamoDB.
func NewDynamoDBScanner(ctx context.Context, cfg Config) (*DynamoDBScanner, error) {
	var awsCfg aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		// Static credentials (for DynamoDB Local or explicit keys)
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
	} else {
		// Default credential chain (IAM roles, env vars, etc.)
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &DynamoDBScanner{client: client}, nil
}

// NewDynamoDBScannerFromClient wraps an existing client. Used by tests and by
// callers that share one client across collaborators.
func NewDynamoDBScannerFromClient(client *dynamodb.Client) *DynamoDBScanner {
	return &DynamoDBScanner{client: client}
}

// Scan reads every item in the table, following pagination until exhaustion.
// The filter, when present, becomes a server-side contains() expression.
func (s *DynamoDBScanner) Scan(ctx context.Context, location string, filter *Filter) (*Result, error) {
	ctx, span := tracer.Start(ctx, "DynamoDB.Scan",
		trace.WithAttributes(
			attribute.String("db.operation", "Scan"),
			attribute.String("db.table", location),
		),
	)
	defer span.End()

	input := &dynamodb.ScanInput{
		TableName: aws.String(location),
	}
	if filter != nil {
		input.FilterExpression = aws.String("contains(#attr, :val)")
		input.ExpressionAttributeNames = map[string]string{
			"#attr": filter.Attribute,
		}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":val": &types.AttributeValueMemberS{Value: filter.Contains},
		}
		span.SetAttributes(attribute.String("db.filter_attribute", filter.Attribute))
	}

	result := &Result{}
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scan failed")
			return nil, fmt.Errorf("failed to scan %s: %w", location, err)
		}

		for _, raw := range out.Items {
			result.Items = append(result.Items, FlattenItem(raw))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	result.Count = len(result.Items)
	span.SetAttributes(attribute.Int("db.items_returned", result.Count))
	return result, nil
}

// FlattenItem converts a DynamoDB attribute map to a flat string bag. Only
// scalar attributes survive; the usage tables do not nest.
func FlattenItem(raw map[string]types.AttributeValue) Item {
	item := make(Item, len(raw))
	for name, av := range raw {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			item[name] = v.Value
		case *types.AttributeValueMemberN:
			item[name] = v.Value
		case *types.AttributeValueMemberBOOL:
			if v.Value {
				item[name] = "true"
			} else {
				item[name] = "false"
			}
		}
	}
	return item
}
