package astra

import (
	"archive/zip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

var ErrInvalidBundle = errors.New("invalid secure connect bundle")

// Bundle holds what a secure connect bundle provides: the metadata service
// address and the mutual TLS material for it and for the SNI proxy.
type Bundle struct {
	Host string
	Port int
	TLS  *tls.Config
}

type bundleConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// contactInfo is the part of the metadata service response the driver needs.
type contactInfo struct {
	Type            string   `json:"type"`
	LocalDC         string   `json:"local_dc"`
	ContactPoints   []string `json:"contact_points"`
	SNIProxyAddress string   `json:"sni_proxy_address"`
}

var bundleFiles = []string{"config.json", "ca.crt", "cert", "key"}

func LoadBundle(path string) (*Bundle, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open secure connect bundle: %w", err)
	}
	defer r.Close()

	return readBundle(&r.Reader)
}

func readBundle(r *zip.Reader) (*Bundle, error) {
	files := make(map[string][]byte, len(bundleFiles))
	for _, f := range r.File {
		for _, name := range bundleFiles {
			if f.Name != name {
				continue
			}
			data, err := readZipFile(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s from bundle: %w", name, err)
			}
			files[name] = data
		}
	}
	for _, name := range bundleFiles {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidBundle, name)
		}
	}

	var cfg bundleConfig
	if err := json.Unmarshal(files["config.json"], &cfg); err != nil {
		return nil, fmt.Errorf("%w: config.json: %v", ErrInvalidBundle, err)
	}
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("%w: config.json has no metadata host or port", ErrInvalidBundle)
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(files["ca.crt"]) {
		return nil, fmt.Errorf("%w: ca.crt holds no certificates", ErrInvalidBundle)
	}

	cert, err := tls.X509KeyPair(files["cert"], files["key"])
	if err != nil {
		return nil, fmt.Errorf("%w: client key pair: %v", ErrInvalidBundle, err)
	}

	return &Bundle{
		Host: cfg.Host,
		Port: cfg.Port,
		TLS: &tls.Config{
			RootCAs:      roots,
			Certificates: []tls.Certificate{cert},
			ServerName:   cfg.Host,
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// tlsFor sends serverName as SNI so the proxy can route to that node, while
// the certificate is still verified against the bundle host.
func (b *Bundle) tlsFor(serverName string) *tls.Config {
	cfg := b.TLS.Clone()
	cfg.ServerName = serverName
	cfg.InsecureSkipVerify = true
	cfg.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		return b.verifyPeer(rawCerts)
	}
	return cfg
}

func (b *Bundle) verifyPeer(rawCerts [][]byte) error {
	if len(rawCerts) == 0 {
		return errors.New("proxy presented no certificate")
	}

	certs := make([]*x509.Certificate, len(rawCerts))
	for i, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return fmt.Errorf("failed to parse proxy certificate: %w", err)
		}
		certs[i] = cert
	}

	opts := x509.VerifyOptions{
		Roots:         b.TLS.RootCAs,
		DNSName:       b.Host,
		Intermediates: x509.NewCertPool(),
	}
	for _, c := range certs[1:] {
		opts.Intermediates.AddCert(c)
	}

	_, err := certs[0].Verify(opts)
	return err
}

// fetchContactInfo asks the metadata service for the SNI proxy address and
// the host IDs that can be used as routing names.
func (b *Bundle) fetchContactInfo(ctx context.Context, timeout time.Duration) (*contactInfo, error) {
	client := &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{TLSClientConfig: b.TLS},
	}

	url := "https://" + net.JoinHostPort(b.Host, strconv.Itoa(b.Port)) + "/metadata"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch astra metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("astra metadata service returned status %d", resp.StatusCode)
	}

	var body struct {
		ContactInfo contactInfo `json:"contact_info"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode astra metadata: %w", err)
	}

	info := body.ContactInfo
	if info.SNIProxyAddress == "" || len(info.ContactPoints) == 0 {
		return nil, errors.New("astra metadata has no sni proxy address or contact points")
	}
	return &info, nil
}
