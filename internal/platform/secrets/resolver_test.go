package secrets

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSecretClient struct {
	mu     sync.Mutex
	values map[string]string
	err    error
	calls  map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{values: map[string]string{}, calls: map[string]int{}}
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.GetName()]++
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)}}, nil
}

func (f *fakeSecretClient) Close() error { return nil }

func writeFallback(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".secrets.local")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestResolverCachesRemoteSecret(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	resource := "projects/shop/secrets/jwt-signing-key/versions/latest"
	client.values[resource] = "s3cret"

	resolver, err := NewResolver(ctx, withClient(client), WithProject("shop"), WithFallbackFile(""))
	require.NoError(t, err)
	defer resolver.Close()

	for i := 0; i < 2; i++ {
		got, err := resolver.ResolveSecret(ctx, "secret://jwt-signing-key")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", got)
	}
	assert.Equal(t, 1, client.calls[resource])
}

func TestResolverHonoursVersionAndProject(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values["projects/other/secrets/db-dsn/versions/7"] = "postgres://pinned"

	resolver, err := NewResolver(ctx, withClient(client), WithProject("shop"), WithFallbackFile(""))
	require.NoError(t, err)

	got, err := resolver.ResolveSecret(ctx, "secret://db-dsn?version=7&project=other")
	require.NoError(t, err)
	assert.Equal(t, "postgres://pinned", got)
}

func TestResolverFallsBackWhenSecretMissing(t *testing.T) {
	ctx := context.Background()
	path := writeFallback(t, "# local overrides\njwt-signing-key=\"local-key\"\n")

	resolver, err := NewResolver(ctx, withClient(newFakeSecretClient()), WithProject("shop"), WithFallbackFile(path))
	require.NoError(t, err)

	got, err := resolver.ResolveSecret(ctx, "secret://jwt-signing-key")
	require.NoError(t, err)
	assert.Equal(t, "local-key", got)
}

func TestResolverWithoutProjectUsesFallbackOnly(t *testing.T) {
	path := writeFallback(t, "redis-url=redis://localhost:6379/0\n")
	resolver, err := NewResolver(context.Background(), WithFallbackFile(path))
	require.NoError(t, err)

	got, err := resolver.ResolveSecret(context.Background(), "secret://redis-url")
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/0", got)

	_, err = resolver.ResolveSecret(context.Background(), "secret://absent")
	assert.Error(t, err)
}

func TestResolverSurfacesNonFallbackErrors(t *testing.T) {
	client := newFakeSecretClient()
	client.err = status.Error(codes.InvalidArgument, "bad name")
	path := writeFallback(t, "jwt-signing-key=local\n")

	resolver, err := NewResolver(context.Background(), withClient(client), WithProject("shop"), WithFallbackFile(path))
	require.NoError(t, err)

	_, err = resolver.ResolveSecret(context.Background(), "secret://jwt-signing-key")
	assert.Error(t, err)
}

func TestParseReferenceRejectsInvalid(t *testing.T) {
	for _, ref := range []string{"", "https://example.com/x", "secret://"} {
		_, err := parseReference(ref)
		assert.Error(t, err, ref)
	}
}
