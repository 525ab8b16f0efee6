package replicate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/acksell/ddbreplicate/dynamodb/ddbiface"
	"github.com/acksell/ddbreplicate/dynamodb/ddbstore"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

const (
	// DefaultRemoteRegion is the region the remote tables are read from.
	DefaultRemoteRegion = "eu-west-1"

	// Service URL schemes selecting an embedded ddbstore target.
	MemoryScheme = "memory://"
	BadgerScheme = "badger://"

	// DynamoDB Local accepts any credentials but still expects signed requests.
	localAccessKeyID     = "local"
	localSecretAccessKey = "local"
)

// RemoteAWSConfig builds the AWS config for the remote account using the
// static credentials from cfg. An empty region selects DefaultRemoteRegion.
func RemoteAWSConfig(ctx context.Context, cfg Config, region string) (aws.Config, error) {
	if region == "" {
		region = DefaultRemoteRegion
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load remote aws config: %w", err)
	}
	return awsCfg, nil
}

// NewRemoteClient creates the DynamoDB client for the remote account.
func NewRemoteClient(ctx context.Context, cfg Config, region string) (*dynamodb.Client, error) {
	awsCfg, err := RemoteAWSConfig(ctx, cfg, region)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

// Target is an opened local replication target.
type Target struct {
	Client ddbiface.SchemaClient
	// Embedded is true when Client is a ddbstore.Store.
	Embedded bool
	close    func() error
}

// Close releases the target. Closing an HTTP target is a no-op.
func (t *Target) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

// OpenTarget opens the local target named by serviceURL:
//
//	http://localhost:8000   DynamoDB Local or any compatible endpoint
//	memory://               in-memory ddbstore
//	badger://./data         ddbstore persisted under ./data
func OpenTarget(ctx context.Context, serviceURL string, region string, logger *zap.Logger) (*Target, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	serviceURL = strings.TrimSpace(serviceURL)

	switch {
	case serviceURL == MemoryScheme:
		store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true, Logger: ddbstore.ZapLogger(logger)})
		if err != nil {
			return nil, fmt.Errorf("open in-memory store: %w", err)
		}
		return &Target{Client: store, Embedded: true, close: store.Close}, nil

	case strings.HasPrefix(serviceURL, BadgerScheme):
		path := strings.TrimPrefix(serviceURL, BadgerScheme)
		if path == "" {
			return nil, fmt.Errorf("service url %q: missing database directory", serviceURL)
		}
		store, err := ddbstore.New(ddbstore.StoreOptions{Path: path, Logger: ddbstore.ZapLogger(logger)})
		if err != nil {
			return nil, fmt.Errorf("open store at %s: %w", path, err)
		}
		return &Target{Client: store, Embedded: true, close: store.Close}, nil
	}

	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("service url %q: %w", serviceURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("service url %q: expected http(s)://host[:port], %s or %s<dir>", serviceURL, MemoryScheme, BadgerScheme)
	}
	if region == "" {
		region = DefaultRemoteRegion
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(localAccessKeyID, localSecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load local aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(serviceURL)
	})
	return &Target{Client: client}, nil
}
