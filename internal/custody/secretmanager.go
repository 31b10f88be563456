package custody

import (
	"context"       // Context for blocking calls
	"encoding/json" // JSON payloads
	"fmt"           // String formatting
	"strings"       // String manipulation

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb" // Secret Manager messages
	"github.com/googleapis/gax-go/v2"                         // Call options
	"github.com/pkg/errors"                                   // Error wrapping
	"google.golang.org/grpc/codes"                            // gRPC status codes
	"google.golang.org/grpc/status"                           // gRPC status inspection
)

// SecretClient is the part of the Secret Manager client the store uses
type SecretClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
}

// SecretManagerStore keeps one secret per wallet, named prefix + public key.
// Payloads are the private key as a JSON array of byte values.
type SecretManagerStore struct {
	client  SecretClient
	project string
	prefix  string
}

func NewSecretManagerStore(client SecretClient, project, prefix string) (*SecretManagerStore, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, errors.New("secret manager custody: project is empty")
	}
	return &SecretManagerStore{client: client, project: project, prefix: prefix}, nil
}

func (s *SecretManagerStore) secretName(publicKey string) string {
	return fmt.Sprintf("projects/%s/secrets/%s%s", s.project, s.prefix, publicKey)
}

func (s *SecretManagerStore) CreateWallet(ctx context.Context) (string, error) {
	kp := GenerateKeypair()
	secret, err := kp.secretBytes()
	if err != nil {
		return "", err
	}
	defer wipe(secret)
	pub := kp.PublicKey

	_, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   "projects/" + s.project, // Secrets live in the configured project
		SecretId: s.prefix + pub,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{}, // Let Google pick the regions
				},
			},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "create wallet secret")
	}

	ints := make([]int, len(secret)) // Stored as a JSON array of byte values
	for i, v := range secret {
		ints[i] = int(v)
	}
	payload, err := json.Marshal(ints)
	if err != nil {
		return "", errors.Wrap(err, "marshal wallet secret")
	}
	_, err = s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretName(pub),
		Payload: &secretmanagerpb.SecretPayload{Data: payload},
	})
	if err != nil {
		return "", errors.Wrap(err, "add wallet secret version")
	}
	return pub, nil
}

func (s *SecretManagerStore) Sign(ctx context.Context, publicKey string, message []byte) ([]byte, error) {
	res, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.secretName(publicKey) + "/versions/latest", // Always sign with the newest version
	})
	if status.Code(err) == codes.NotFound { // Unknown wallet
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "access wallet secret")
	}

	var ints []int
	if err := json.Unmarshal(res.GetPayload().GetData(), &ints); err != nil {
		return nil, errors.Wrap(err, "decode wallet secret")
	}
	secret := make([]byte, len(ints)) // Back to raw bytes
	for i, v := range ints {
		secret[i] = byte(v)
	}
	defer wipe(secret)
	return signWith(secret, publicKey, message)
}
