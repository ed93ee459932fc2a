package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	http3 "github.com/quic-go/quic-go/http3"

	"github.com/go-memregion/memregion/internal/memregion"
)

// diagServer wraps http3.Server lifecycle for the demo's read-only
// diagnostics endpoint, grounded on internal/runtime/netstack/http3.go's
// HTTP3Server: TLS 1.3 is enforced unconditionally since QUIC requires it,
// and start binds an explicit net.PacketConn so the bound address is known
// before serve blocks.
type diagServer struct {
	pc  net.PacketConn
	srv *http3.Server
}

func newDiagServer(addr string, tlsCfg *tls.Config, h http.Handler) *diagServer {
	if tlsCfg.MinVersion < tls.VersionTLS13 {
		tlsCfg.MinVersion = tls.VersionTLS13
	}

	if len(tlsCfg.NextProtos) == 0 {
		tlsCfg.NextProtos = []string{"h3"}
	}

	return &diagServer{srv: &http3.Server{Addr: addr, TLSConfig: tlsCfg, Handler: h}}
}

func (s *diagServer) start() (string, error) {
	pc, err := net.ListenPacket("udp", s.srv.Addr)
	if err != nil {
		return "", err
	}

	s.pc = pc

	return pc.LocalAddr().String(), nil
}

func (s *diagServer) serve() error { return s.srv.Serve(s.pc) }

// runServe exposes Allocator.Dump (/dump) and Allocator.Stats (/stats) over
// HTTP/3 at addr. It builds one allocator for the process lifetime; /collect
// runs a collection cycle on demand and reports the collector's cumulative
// CollectStats afterwards.
func runServe(addr string, capacityBytes uintptr, chunkListCap int) error {
	a, err := memregion.New(
		memregion.WithRegionCapacity(capacityBytes),
		memregion.WithChunkListCapacity(chunkListCap),
	)
	if err != nil {
		return err
	}

	defer a.Close()

	c := memregion.NewCollector(a)
	c.InitRoot()

	mux := http.NewServeMux()

	mux.HandleFunc("/dump", func(w http.ResponseWriter, r *http.Request) {
		which := memregion.SelectorAllocated
		if r.URL.Query().Get("which") == "free" {
			which = memregion.SelectorFree
		}

		a.Dump(w, which)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.Stats())
	})

	mux.HandleFunc("/collect", func(w http.ResponseWriter, r *http.Request) {
		stats := c.Collect()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	})

	tlsCfg, err := selfSignedTLSConfig()
	if err != nil {
		return err
	}

	srv := newDiagServer(addr, tlsCfg, mux)

	boundAddr, err := srv.start()
	if err != nil {
		return err
	}

	fmt.Printf("serving memregion diagnostics over HTTP/3 at https://%s (self-signed)\n", boundAddr)

	return srv.serve()
}

// selfSignedTLSConfig generates an ephemeral, self-signed certificate for
// localhost. QUIC/HTTP3 requires TLS regardless of whether the diagnostics
// endpoint is reachable beyond the local machine, so the demo cannot just
// skip it the way a plain HTTP server could; grounded on
// internal/runtime/netstack/http3_test.go's genSelfSigned helper.
func selfSignedTLSConfig() (*tls.Config, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     []string{"localhost"},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{Certificates: []tls.Certificate{pair}}, nil
}
