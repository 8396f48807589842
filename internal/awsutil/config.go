// Package awsutil loads AWS configuration for the DynamoDB store and S3 documents.
package awsutil

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
)

// Load loads the AWS configuration, routing every service to endpoint when it
// is set (e.g. http://localstack:4566).
func Load(ctx context.Context, region, endpoint string) (aws.Config, error) {
	if endpoint == "" {
		return awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(region))
	}
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, r string, _ ...any) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               endpoint,
			HostnameImmutable: true,
			PartitionID:       "aws",
		}, nil
	})
	return awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(region), awsCfg.WithEndpointResolverWithOptions(resolver))
}
