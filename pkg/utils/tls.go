package utils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc/credentials"
)

// selfSignedValidity is how long generated test certificates stay valid
const selfSignedValidity = 365 * 24 * time.Hour

// TLSBundle is PEM material for a gRPC endpoint. The certificate is self-signed,
// so it doubles as the CA.
type TLSBundle struct {
	CA   []byte
	Cert []byte
	Key  []byte
}

// TLSPaths are the file locations of a written TLSBundle
type TLSPaths struct {
	CA   string `json:"ca"`
	Cert string `json:"cert"`
	Key  string `json:"key"`
}

// TLSPathsIn returns the ca.pem/cert.pem/key.pem paths under dir
func TLSPathsIn(dir string) TLSPaths {
	return TLSPaths{
		CA:   filepath.Join(dir, "ca.pem"),
		Cert: filepath.Join(dir, "cert.pem"),
		Key:  filepath.Join(dir, "key.pem"),
	}
}

// GenerateSelfSignedCert creates an ECDSA P-256 certificate for host
func GenerateSelfSignedCert(host string) (*TLSBundle, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: host},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	if ip := net.ParseIP(host); ip != nil {
		tmpl.IPAddresses = []net.IP{ip}
	} else {
		tmpl.DNSNames = []string{host}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return &TLSBundle{
		CA:   certPEM,
		Cert: certPEM,
		Key:  pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}, nil
}

// WriteTLSBundle writes the bundle into dir and returns the file paths.
// The key is written with owner-only permissions.
func WriteTLSBundle(dir string, b *TLSBundle) (TLSPaths, error) {
	paths := TLSPathsIn(dir)
	files := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{paths.CA, b.CA, 0644},
		{paths.Cert, b.Cert, 0644},
		{paths.Key, b.Key, 0600},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, f.mode); err != nil {
			return TLSPaths{}, fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	return paths, nil
}

// LoadServerTLSConfig loads TLS configuration for gRPC server
// Returns nil if certFile and keyFile are empty (insecure mode)
func LoadServerTLSConfig(certFile, keyFile string) (credentials.TransportCredentials, error) {
	if certFile == "" || keyFile == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load key pair: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
	}

	return credentials.NewTLS(tlsConfig), nil
}
