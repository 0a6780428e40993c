package upstream

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/c360/quakerelay/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// DialOptions configures the connection to the upstream import service.
type DialOptions struct {
	Address string
	// ServerCertPEMFile, if set, builds a secure channel trusting exactly
	// this certificate. Empty means an insecure channel.
	ServerCertPEMFile string
	// BearerToken, if set, is injected into every RPC's metadata.
	BearerToken string
}

// dial opens a gRPC client connection per SPEC_FULL.md section 4.7: a
// secure channel when a server certificate is supplied, an insecure one
// otherwise, with no wait-for-ready so a dead server surfaces on the first
// Recv rather than blocking connect.
func dial(opts DialOptions) (*grpc.ClientConn, error) {
	dialOpts := []grpc.DialOption{}

	if opts.ServerCertPEMFile != "" {
		pem, err := os.ReadFile(opts.ServerCertPEMFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "upstream", "dial", "read server certificate")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.WrapFatal(errors.ErrInvalidConfig, "upstream", "dial", "invalid PEM in server certificate")
		}
		tlsConfig := &tls.Config{RootCAs: pool}
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	if opts.BearerToken != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(bearerTokenCredentials{
			token:         opts.BearerToken,
			requireSecure: opts.ServerCertPEMFile != "",
		}))
	}

	conn, err := grpc.NewClient(opts.Address, dialOpts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "upstream", "dial", "create client connection")
	}
	return conn, nil
}
