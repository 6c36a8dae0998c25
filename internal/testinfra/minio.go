// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMinIOImage is the S3-compatible server used for blob store tests.
	DefaultMinIOImage = "minio/minio:latest"

	minioPort = "9000/tcp"

	// MinIOAccessKey and MinIOSecretKey are the root credentials.
	MinIOAccessKey = "backbeat"
	MinIOSecretKey = "backbeat-secret"

	// MinIORegion is the region clients must sign for.
	MinIORegion = "us-east-1"
)

// MinIOContainer is a running MinIO server with one bucket created.
type MinIOContainer struct {
	testcontainers.Container
	Endpoint string
	Bucket   string
}

// NewMinIOContainer starts MinIO, creates bucket, and returns the endpoint.
// Clients must use path-style addressing.
func NewMinIOContainer(t *testing.T, bucket string) *MinIOContainer {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        DefaultMinIOImage,
			ExposedPorts: []string{minioPort},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     MinIOAccessKey,
				"MINIO_ROOT_PASSWORD": MinIOSecretKey,
			},
			WaitingFor: wait.ForHTTP("/minio/health/ready").
				WithPort(minioPort).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}
	terminateOnCleanup(t, container)

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("minio host: %v", err)
	}
	port, err := container.MappedPort(ctx, minioPort)
	if err != nil {
		t.Fatalf("minio port: %v", err)
	}

	m := &MinIOContainer{
		Container: container,
		Endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
		Bucket:    bucket,
	}
	if err := m.createBucket(ctx); err != nil {
		t.Fatalf("create bucket %s: %v", bucket, err)
	}
	return m
}

// Client returns an S3 client for the container.
func (m *MinIOContainer) Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(MinIORegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(MinIOAccessKey, MinIOSecretKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(m.Endpoint)
		o.UsePathStyle = true
	}), nil
}

func (m *MinIOContainer) createBucket(ctx context.Context) error {
	client, err := m.Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(m.Bucket)})
	return err
}
