// Package certs generates the self-signed TLS material the proxy serves
// when HTTPS is enabled and no certificate has been provisioned. ePOS
// clients on kiosk hardware typically pin or ignore the certificate, so
// self-signed is the normal case, not a fallback.
package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const validity = 10 * 365 * 24 * time.Hour

// ErrPartialKeyPair means exactly one of the two files exists. Generating
// over half a pair would silently orphan the other half, so the caller has
// to clean up first.
var ErrPartialKeyPair = errors.New("certificate and key must both exist or both be absent")

// EnsureKeyPair makes sure a usable certificate/key pair sits at the given
// paths, generating a self-signed one when both are absent. hosts lists
// additional names and addresses to put in the SAN extension; localhost and
// the loopback addresses are always included. Reports whether a new pair
// was created.
func EnsureKeyPair(certPath, keyPath string, hosts []string) (bool, error) {
	certExists := fileExists(certPath)
	keyExists := fileExists(keyPath)

	if certExists && keyExists {
		return false, nil
	}
	if certExists != keyExists {
		return false, fmt.Errorf("%w: cert=%s key=%s", ErrPartialKeyPair, certPath, keyPath)
	}

	if err := generateKeyPair(certPath, keyPath, hosts); err != nil {
		return false, err
	}
	return true, nil
}

// LocalHosts collects the names this machine answers to: the bind host (if
// concrete), the OS hostname, and every interface address. POS terminals
// reach the proxy by whatever address their integrator typed in, so the
// certificate should cover all of them.
func LocalHosts(bindHost string) []string {
	var hosts []string

	if bindHost != "" && bindHost != "0.0.0.0" && bindHost != "::" {
		hosts = append(hosts, bindHost)
	}

	if name, err := os.Hostname(); err == nil && name != "" {
		hosts = append(hosts, name)
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return hosts
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		hosts = append(hosts, ipNet.IP.String())
	}

	return hosts
}

func generateKeyPair(certPath, keyPath string, hosts []string) error {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"epos-proxy"},
			CommonName:   "epos-proxy",
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = appendIP(template.IPAddresses, ip)
		} else {
			template.DNSNames = appendName(template.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	if err := writePEM(certPath, "CERTIFICATE", derBytes, 0o644); err != nil {
		return err
	}

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}
	return writePEM(keyPath, "PRIVATE KEY", privBytes, 0o600)
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func appendIP(ips []net.IP, ip net.IP) []net.IP {
	for _, existing := range ips {
		if existing.Equal(ip) {
			return ips
		}
	}
	return append(ips, ip)
}

func appendName(names []string, name string) []string {
	for _, existing := range names {
		if existing == name {
			return names
		}
	}
	return append(names, name)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
