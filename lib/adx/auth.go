package adx

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-kusto-go/azkustodata"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// AuthMethod selects how the client authenticates against the cluster.
type AuthMethod string

const (
	AuthDefault          AuthMethod = "default"
	AuthAppKey           AuthMethod = "app_key"
	AuthMSI              AuthMethod = "msi"
	AuthWorkloadIdentity AuthMethod = "workload_identity"
	AuthAzCLI            AuthMethod = "az_cli"
)

// AuthConfig holds the credentials part of the configuration.
type AuthConfig struct {
	Method AuthMethod `json:"method,omitempty"`
	// ClientID is the AAD application for app_key and workload_identity.
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty" datapolicy:"token"`
	TenantID     string `json:"tenantId,omitempty"`
	// UserMSI is the client ID of a user assigned identity. System identity is used when it is empty.
	UserMSI            string `json:"userMsi,omitempty"`
	FederatedTokenFile string `json:"federatedTokenFile,omitempty"`
}

// ErrNoCredentials reports an auth method without the values it needs.
var ErrNoCredentials = errors.New("adx: incomplete credentials")

// these environment variables are injected by the workload identity webhook
const (
	azureClientID           = "AZURE_CLIENT_ID"
	azureTenantID           = "AZURE_TENANT_ID"
	azureFederatedTokenFile = "AZURE_FEDERATED_TOKEN_FILE"
)

// WithEnvironment fills workload identity values from the environment.
func (c AuthConfig) WithEnvironment() AuthConfig {
	if c.Method != AuthWorkloadIdentity {
		return c
	}
	if v := os.Getenv(azureTenantID); v != "" && c.TenantID == "" {
		c.TenantID = v
	}
	if v := os.Getenv(azureClientID); v != "" && c.ClientID == "" {
		c.ClientID = v
	}
	if v := os.Getenv(azureFederatedTokenFile); v != "" && c.FederatedTokenFile == "" {
		c.FederatedTokenFile = v
	}
	return c
}

// Validate checks that the method has what it needs.
func (c AuthConfig) Validate() error {
	switch c.Method {
	case "", AuthDefault, AuthMSI, AuthAzCLI:
		return nil
	case AuthAppKey:
		if c.ClientID == "" || c.ClientSecret == "" || c.TenantID == "" {
			return fmt.Errorf("%w: app_key requires clientId, clientSecret and tenantId", ErrNoCredentials)
		}
		return nil
	case AuthWorkloadIdentity:
		if c.ClientID == "" || c.TenantID == "" || c.FederatedTokenFile == "" {
			return fmt.Errorf("%w: workload_identity requires clientId, tenantId and federatedTokenFile", ErrNoCredentials)
		}
		return nil
	default:
		return fmt.Errorf("adx: unknown auth method %q", c.Method)
	}
}

// Credential returns the token credential for methods that go through azidentity directly.
func (c AuthConfig) Credential(opts azcore.ClientOptions) (azcore.TokenCredential, error) {
	switch c.Method {
	case AuthWorkloadIdentity:
		return azidentity.NewWorkloadIdentityCredential(&azidentity.WorkloadIdentityCredentialOptions{
			ClientOptions: opts,
			ClientID:      c.ClientID,
			TenantID:      c.TenantID,
			TokenFilePath: c.FederatedTokenFile,
		})
	default:
		return nil, fmt.Errorf("adx: auth method %q has no standalone credential", c.Method)
	}
}

// ConnectionString builds the connection string for endpoint with the configured credentials.
func (c AuthConfig) ConnectionString(endpoint string) (*azkustodata.ConnectionStringBuilder, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("adx: cluster endpoint is required")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	kcsb := azkustodata.NewConnectionStringBuilder(endpoint)
	if strings.HasPrefix(endpoint, "http://") {
		return kcsb, nil
	}
	switch c.Method {
	case AuthAppKey:
		kcsb.WithAadAppKey(c.ClientID, c.ClientSecret, c.TenantID)
	case AuthMSI:
		if c.UserMSI != "" {
			kcsb.WithUserAssignedIdentityClientId(c.UserMSI)
		} else {
			kcsb.WithSystemManagedIdentity()
		}
	case AuthWorkloadIdentity:
		cred, err := c.Credential(azcore.ClientOptions{})
		if err != nil {
			return nil, Classify("credential", err)
		}
		kcsb.WithTokenCredential(cred)
	case AuthAzCLI:
		kcsb.WithAzCli()
	default:
		kcsb.WithDefaultAzureCredential()
	}
	return kcsb, nil
}
