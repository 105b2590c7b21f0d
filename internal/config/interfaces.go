package config

import "context"

// SecretProvider resolves *_SSM_PARAM pointers. SSMProvider is used in deployed
// environments, EnvVarProvider for local runs and tests.
type SecretProvider interface {
	// GetParametersBatch returns key -> plaintext for every key it could resolve.
	// Missing keys are omitted rather than reported as errors.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
