package socket

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"strings"

	"hftnet/pkg/exception"

	"github.com/yanun0323/errors"
)

var certExtensions = map[string]struct{}{
	".pem": {},
	".crt": {},
	".cer": {},
}

// newTLSConfig verifies the server against the system roots, or only against
// the certificates in certsDir when it is set.
func newTLSConfig(serverName, certsDir string) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}
	if certsDir == "" {
		return cfg, nil
	}
	pool, err := loadCertPool(certsDir)
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = pool
	return cfg, nil
}

func loadCertPool(dir string) (*x509.CertPool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read certs dir %s", dir)
	}

	pool := x509.NewCertPool()
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := certExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read cert %s", entry.Name())
		}
		if pool.AppendCertsFromPEM(data) {
			loaded++
		}
	}
	if loaded == 0 {
		return nil, errors.Wrapf(exception.ErrNoCertificates, "dir: %s", dir)
	}
	return pool, nil
}
