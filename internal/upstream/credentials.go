package upstream

import "context"

// bearerTokenCredentials injects a bearer token into every outbound RPC's
// metadata under the key the import service expects, mirroring the source's
// CustomAuthenticator metadata plugin (SPEC_FULL.md section 4.7).
type bearerTokenCredentials struct {
	token         string
	requireSecure bool
}

const bearerTokenMetadataKey = "x-custom-auth-token"

func (c bearerTokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{bearerTokenMetadataKey: c.token}, nil
}

func (c bearerTokenCredentials) RequireTransportSecurity() bool {
	return c.requireSecure
}
