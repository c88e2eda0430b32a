package secrets

import (
	"context"
	"fmt"
	"strings"

	"studiovault/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// RefPrefix marks a config value as a Secret Manager reference, e.g.
// "sm://stripe-secret-key" or "sm://projects/p/secrets/s/versions/3".
const RefPrefix = "sm://"

// Accessor reads one secret version.
type Accessor interface {
	AccessSecretVersion(ctx context.Context, name string) ([]byte, error)
}

type gcpAccessor struct {
	client *secretmanager.Client
}

// NewGCPAccessor creates a Secret Manager backed Accessor.
func NewGCPAccessor(ctx context.Context, opts ...option.ClientOption) (Accessor, func() error, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &gcpAccessor{client: client}, client.Close, nil
}

func (a *gcpAccessor) AccessSecretVersion(ctx context.Context, name string) ([]byte, error) {
	result, err := a.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret version %s: %w", name, err)
	}
	return result.Payload.Data, nil
}

// IsRef reports whether v names a secret instead of holding one.
func IsRef(v string) bool {
	return strings.HasPrefix(v, RefPrefix)
}

// ResourceName expands a reference to a full secret version name. Short
// references resolve to the latest version in projectID.
func ResourceName(ref, projectID string) (string, error) {
	name := strings.TrimPrefix(ref, RefPrefix)
	if name == "" {
		return "", fmt.Errorf("empty secret reference")
	}
	if strings.HasPrefix(name, "projects/") {
		return name, nil
	}
	if projectID == "" {
		return "", fmt.Errorf("secret reference %q needs GCP_PROJECT_ID", ref)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, name), nil
}

// HasRefs reports whether any secret-bearing config field is a reference.
func HasRefs(cfg *config.Config) bool {
	for _, f := range secretFields(cfg) {
		if IsRef(*f.value) {
			return true
		}
	}
	return false
}

// Resolve replaces every referenced secret in cfg with its value.
func Resolve(ctx context.Context, cfg *config.Config, a Accessor) error {
	for _, f := range secretFields(cfg) {
		if !IsRef(*f.value) {
			continue
		}
		name, err := ResourceName(*f.value, cfg.GCPProjectID)
		if err != nil {
			return fmt.Errorf("%s: %w", f.env, err)
		}
		data, err := a.AccessSecretVersion(ctx, name)
		if err != nil {
			return fmt.Errorf("%s: %w", f.env, err)
		}
		*f.value = strings.TrimSpace(string(data))
	}
	return nil
}

type secretField struct {
	env   string
	value *string
}

func secretFields(cfg *config.Config) []secretField {
	return []secretField{
		{"DB_CONNECTION_STRING", &cfg.DBConnectionString},
		{"JWT_SECRET", &cfg.JWTSecret},
		{"STRIPE_SECRET_KEY", &cfg.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", &cfg.StripeWebhookSecret},
	}
}

// ResolveConfig resolves references in cfg with a Secret Manager client,
// skipping client creation when there is nothing to resolve.
func ResolveConfig(ctx context.Context, cfg *config.Config) error {
	if !HasRefs(cfg) {
		return nil
	}
	a, closeFn, err := NewGCPAccessor(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return Resolve(ctx, cfg, a)
}
