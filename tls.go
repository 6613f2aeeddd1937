package main

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
)

// loadTLSConfig loads the chat listener's certificate and key. Returns the
// tls.Config, the SHA-256 fingerprint of the leaf certificate, and any error.
func loadTLSConfig(certFile, keyFile string) (*tls.Config, string, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, "", fmt.Errorf("load key pair: %w", err)
	}

	fp := sha256.Sum256(cert.Certificate[0])
	fingerprint := hex.EncodeToString(fp[:])

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return cfg, fingerprint, nil
}
