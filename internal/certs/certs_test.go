package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureKeyPairGenerates(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	created, err := EnsureKeyPair(certPath, keyPath, []string{"192.168.1.50", "till-1.local"})
	require.NoError(t, err)
	assert.True(t, created)

	// The pair must load as a working TLS identity.
	_, err = tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)

	pemBytes, err := os.ReadFile(certPath)
	require.NoError(t, err)
	block, _ := pem.Decode(pemBytes)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	assert.Equal(t, "epos-proxy", cert.Subject.CommonName)
	assert.Contains(t, cert.DNSNames, "localhost")
	assert.Contains(t, cert.DNSNames, "till-1.local")

	var ips []string
	for _, ip := range cert.IPAddresses {
		ips = append(ips, ip.String())
	}
	assert.Contains(t, ips, "127.0.0.1")
	assert.Contains(t, ips, "192.168.1.50")

	assert.True(t, cert.NotAfter.After(time.Now().AddDate(9, 0, 0)), "ten year validity")
}

func TestEnsureKeyPairKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	created, err := EnsureKeyPair(certPath, keyPath, nil)
	require.NoError(t, err)
	require.True(t, created)

	before, err := os.ReadFile(certPath)
	require.NoError(t, err)

	created, err = EnsureKeyPair(certPath, keyPath, nil)
	require.NoError(t, err)
	assert.False(t, created)

	after, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "existing material untouched")
}

func TestEnsureKeyPairRefusesHalfPair(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")

	require.NoError(t, os.WriteFile(certPath, []byte("stale"), 0o644))

	_, err := EnsureKeyPair(certPath, keyPath, nil)
	assert.ErrorIs(t, err, ErrPartialKeyPair)
}

func TestLocalHostsSkipsWildcardBind(t *testing.T) {
	hosts := LocalHosts("0.0.0.0")
	for _, h := range hosts {
		assert.NotEqual(t, "0.0.0.0", h)
	}

	hosts = LocalHosts("10.0.0.7")
	assert.Contains(t, hosts, "10.0.0.7")
}
