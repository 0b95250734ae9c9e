package astra

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"
)

// sniDialer connects every node through the single SNI proxy, naming the
// target node by host ID in the TLS handshake.
type sniDialer struct {
	bundle  *Bundle
	proxy   string
	hostIDs []string
	next    atomic.Uint32
	dialer  net.Dialer
}

func newSNIDialer(bundle *Bundle, info *contactInfo, timeout time.Duration) *sniDialer {
	return &sniDialer{
		bundle:  bundle,
		proxy:   info.SNIProxyAddress,
		hostIDs: info.ContactPoints,
		dialer:  net.Dialer{Timeout: timeout},
	}
}

func (d *sniDialer) DialHost(ctx context.Context, host *gocql.HostInfo) (*gocql.DialedHost, error) {
	return d.dial(ctx, host.HostID())
}

// dial falls back to the contact points in turn for hosts the driver has
// not identified yet.
func (d *sniDialer) dial(ctx context.Context, hostID string) (*gocql.DialedHost, error) {
	if hostID == "" {
		n := d.next.Add(1) - 1
		hostID = d.hostIDs[int(n%uint32(len(d.hostIDs)))]
	}

	conn, err := d.dialer.DialContext(ctx, "tcp", d.proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to dial sni proxy %s: %w", d.proxy, err)
	}

	tlsConn := tls.Client(conn, d.bundle.tlsFor(hostID))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s failed: %w", hostID, err)
	}

	return &gocql.DialedHost{Conn: tlsConn, DisableCoalesce: true}, nil
}

// NewClusterFromBundle builds a cluster config that reaches Astra through the
// bundle's SNI proxy and authenticates with the literal user "token".
func NewClusterFromBundle(ctx context.Context, path, token string, timeout time.Duration) (*gocql.ClusterConfig, error) {
	bundle, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}

	info, err := bundle.fetchContactInfo(ctx, timeout)
	if err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(info.SNIProxyAddress)
	cluster.HostDialer = newSNIDialer(bundle, info, timeout)
	cluster.Authenticator = gocql.PasswordAuthenticator{Username: "token", Password: token}
	cluster.ProtoVersion = 4
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = timeout
	cluster.ConnectTimeout = timeout
	if info.LocalDC != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.DCAwareRoundRobinPolicy(info.LocalDC)
	}

	return cluster, nil
}
