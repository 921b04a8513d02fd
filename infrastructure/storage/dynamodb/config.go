// Package dynamodb provides a DynamoDB-backed key-value store.
package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/mediacatalog/domain/clock"
)

// Config locates the kv table.
type Config struct {
	Region string

	// Endpoint overrides the service URL, e.g. DynamoDB Local.
	Endpoint string

	// QueryTimeout bounds each request.
	QueryTimeout time.Duration

	// TableName has a string hash key named "key".
	TableName string

	// CreateTable creates the table on open when it is missing.
	CreateTable bool

	// KeyPrefix namespaces keys in a shared table.
	KeyPrefix string

	// Clock decides expiry. Defaults to the system clock.
	Clock clock.Clock
}

// DefaultConfig uses the catalog_kv table in us-east-1.
func DefaultConfig() Config {
	return Config{
		Region:       "us-east-1",
		QueryTimeout: 10 * time.Second,
		TableName:    "catalog_kv",
		KeyPrefix:    "catalog:",
	}
}

// ConfigOption configures the DynamoDB connection.
type ConfigOption func(*Config)

// WithRegion sets the AWS region.
func WithRegion(region string) ConfigOption {
	return func(c *Config) { c.Region = region }
}

// WithEndpoint sets the DynamoDB endpoint (for local development).
func WithEndpoint(endpoint string) ConfigOption {
	return func(c *Config) { c.Endpoint = endpoint }
}

// WithQueryTimeout sets the per-request timeout.
func WithQueryTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.QueryTimeout = d }
}

// WithTableName sets the table name.
func WithTableName(name string) ConfigOption {
	return func(c *Config) { c.TableName = name }
}

// WithCreateTable creates the table on open.
func WithCreateTable() ConfigOption {
	return func(c *Config) { c.CreateTable = true }
}

// WithClock sets the clock used for expiry.
func WithClock(clk clock.Clock) ConfigOption {
	return func(c *Config) { c.Clock = clk }
}

// newClient creates a DynamoDB client from the default AWS credential chain.
func newClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, err
	}

	var ddbOpts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		ddbOpts = append(ddbOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return dynamodb.NewFromConfig(awsCfg, ddbOpts...), nil
}

// createTable creates the key-value table if it doesn't exist and waits
// for it to become active.
func createTable(ctx context.Context, client *dynamodb.Client, name string) error {
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("key"),
				KeyType:       types.KeyTypeHash,
			},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	}

	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var resourceInUse *types.ResourceInUseException
		if errors.As(err, &resourceInUse) {
			return nil
		}
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	}, 2*time.Minute)
}
