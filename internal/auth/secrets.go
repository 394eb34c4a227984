package auth

// secrets.go - Secrets Manager backed SecretProvider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretsAPI is the subset of the Secrets Manager client in use.
type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManager fetches secret payloads from AWS Secrets Manager.
type SecretsManager struct {
	client secretsAPI
}

// NewSecretsManager constructs a provider using the default credentials
// chain.
func NewSecretsManager(ctx context.Context, region string) (*SecretsManager, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SecretsManager{client: secretsmanager.NewFromConfig(awsCfg)}, nil
}

// SecretString returns the secret's string payload.
func (s *SecretsManager) SecretString(ctx context.Context, secretID string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value %s: %w", secretID, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string payload", secretID)
	}
	return *out.SecretString, nil
}

// StaticProvider serves a fixed payload; useful for tests and local runs.
type StaticProvider map[string]string

// SecretString implements SecretProvider.
func (p StaticProvider) SecretString(_ context.Context, secretID string) (string, error) {
	payload, ok := p[secretID]
	if !ok {
		return "", fmt.Errorf("secret %s not found", secretID)
	}
	return payload, nil
}
