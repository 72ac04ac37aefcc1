package session

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/apperr"
)

// writeTempMaterial spills in-memory PEM text to 0600 temp files so the
// driver's underlying TLS stack — which takes file paths, not byte
// slices, the way a mosquitto-style C library would — can read them.
// Per spec.md §3 invariant 4, a Session holds either mat or the paths
// writeTempMaterial returns, never both; Start clears its cfg.TLS
// immediately after this succeeds.
func writeTempMaterial(mat TLSMaterial) (*tempPaths, error) {
	if mat.Empty() {
		return nil, nil
	}
	paths := &tempPaths{}
	var err error
	if mat.CAList != "" {
		if paths.ca, err = writeTempPEM("mqtt-agent-ca-*.pem", mat.CAList); err != nil {
			paths.cleanup()
			return nil, err
		}
	}
	if mat.Cert != "" {
		if paths.cert, err = writeTempPEM("mqtt-agent-cert-*.pem", mat.Cert); err != nil {
			paths.cleanup()
			return nil, err
		}
	}
	if mat.Key != "" {
		if paths.key, err = writeTempPEM("mqtt-agent-key-*.pem", mat.Key); err != nil {
			paths.cleanup()
			return nil, err
		}
	}
	return paths, nil
}

func writeTempPEM(pattern, contents string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", apperr.Wrap(apperr.KindTLSSetup, err, "creating temp file for %s", pattern)
	}
	defer f.Close()
	if err := f.Chmod(0o600); err != nil {
		_ = os.Remove(f.Name())
		return "", apperr.Wrap(apperr.KindTLSSetup, err, "chmod temp file %s", f.Name())
	}
	if _, err := f.WriteString(contents); err != nil {
		_ = os.Remove(f.Name())
		return "", apperr.Wrap(apperr.KindTLSSetup, err, "writing temp file %s", f.Name())
	}
	return f.Name(), nil
}

// cleanup removes every temp file paths owns. Safe to call more than
// once and on a nil receiver.
func (p *tempPaths) cleanup() {
	if p == nil {
		return
	}
	for _, path := range []string{p.ca, p.cert, p.key} {
		if path != "" {
			_ = os.Remove(path)
		}
	}
}

// buildTLSConfig reads paths back off disk into a *tls.Config for the
// driver's underlying connection. Called once, synchronously, from
// newPahoDriver — never retained across reconnects since none occur.
func buildTLSConfig(paths tempPaths) (*tls.Config, error) {
	cfg := &tls.Config{}

	if paths.ca != "" {
		pem, err := os.ReadFile(paths.ca)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTLSSetup, err, "reading ca file %s", paths.ca)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, apperr.New(apperr.KindTLSSetup, "no certificates parsed from ca file %s", paths.ca)
		}
		cfg.RootCAs = pool
	}

	if paths.cert != "" && paths.key != "" {
		cert, err := tls.LoadX509KeyPair(paths.cert, paths.key)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTLSSetup, err, "loading client keypair")
		}
		cfg.Certificates = []tls.Certificate{cert}
	} else if paths.cert != "" || paths.key != "" {
		return nil, apperr.New(apperr.KindValidation, "tls cert and key must both be set or both be empty")
	}

	if cfg.RootCAs == nil && len(cfg.Certificates) == 0 {
		return nil, fmt.Errorf("tls requested but no material was provided")
	}
	return cfg, nil
}
