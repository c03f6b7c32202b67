package client

import (
	"carrental/pkg/logger"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SetS3 builds an S3 client from the default credential chain. A non-empty
// endpoint switches to path-style addressing for S3-compatible stores.
func (c *Client) SetS3(log *logger.Logger, region string, endpoint string) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		log.Fatal("Failed to load AWS configuration", "error", err)
	}

	c.S3 = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info("S3 client configured", "region", region, "custom_endpoint", endpoint != "")
}
