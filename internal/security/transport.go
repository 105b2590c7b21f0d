// Package security guards outbound webhook requests against SSRF.
//
// SafeTransport resolves every destination itself and refuses to dial when
// any resolved address falls in types.SSRFBlockedCIDRs, so a webhook route
// can never reach the instance metadata service, localhost or a VPC peer.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"alertsystem/internal/types"
)

const dnsTimeout = 500 * time.Millisecond

var (
	ErrSSRFBlocked          = errors.New("ssrf: request to blocked IP range")
	ErrSSRFDNSTimeout       = errors.New("ssrf: DNS resolution timeout")
	ErrSSRFTooManyRedirects = errors.New("ssrf: too many redirects")
	ErrSSRFDNSFailed        = errors.New("ssrf: DNS resolution failed")
)

var (
	blockedNets []*net.IPNet
	initOnce    sync.Once
	initErr     error
)

func initBlockedNets() error {
	initOnce.Do(func() {
		blockedNets = make([]*net.IPNet, 0, len(types.SSRFBlockedCIDRs))
		for _, cidr := range types.SSRFBlockedCIDRs {
			_, ipNet, err := net.ParseCIDR(cidr)
			if err != nil {
				initErr = fmt.Errorf("ssrf: failed to parse CIDR %q: %w", cidr, err)
				return
			}
			blockedNets = append(blockedNets, ipNet)
		}
	})
	return initErr
}

func isBlockedIP(ip net.IP) bool {
	for _, ipNet := range blockedNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// IsSSRFError reports whether err came from the SSRF guard. Such failures
// are permanent for the destination.
func IsSSRFError(err error) bool {
	return errors.Is(err, ErrSSRFBlocked) ||
		errors.Is(err, ErrSSRFDNSTimeout) ||
		errors.Is(err, ErrSSRFTooManyRedirects) ||
		errors.Is(err, ErrSSRFDNSFailed)
}

// Resolver abstracts DNS resolution for testability.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// SafeTransport wraps http.Transport with a dialer that validates every
// resolved address.
type SafeTransport struct {
	Base *http.Transport

	// Resolver is used for DNS lookups. Nil means net.DefaultResolver.
	Resolver Resolver
}

// NewSafeTransport wraps base, or a clone of http.DefaultTransport when nil.
func NewSafeTransport(base *http.Transport) (*SafeTransport, error) {
	if err := initBlockedNets(); err != nil {
		return nil, err
	}
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	// Proxies would dial on our behalf and bypass the check.
	base.Proxy = nil

	st := &SafeTransport{Base: base}
	base.DialContext = st.safeDialContext
	return st, nil
}

func (st *SafeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return st.Base.RoundTrip(req)
}

func (st *SafeTransport) resolver() Resolver {
	if st.Resolver != nil {
		return st.Resolver
	}
	return net.DefaultResolver
}

func (st *SafeTransport) safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("ssrf: invalid address %q: %w", addr, err)
	}

	ips, err := resolveAllowed(ctx, st.resolver(), host)
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}

// resolveAllowed returns the addresses for host, failing if any of them is
// blocked. Checking all of them defeats rebinding tricks that mix a public
// and a private answer.
func resolveAllowed(ctx context.Context, r Resolver, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return nil, fmt.Errorf("%w: %s", ErrSSRFBlocked, ip)
		}
		return []net.IP{ip}, nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, err := r.LookupIPAddr(dnsCtx, host)
	if err != nil {
		if dnsCtx.Err() != nil {
			return nil, fmt.Errorf("%w: host %q", ErrSSRFDNSTimeout, host)
		}
		return nil, fmt.Errorf("%w: host %q: %v", ErrSSRFDNSFailed, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: host %q resolved to no addresses", ErrSSRFDNSFailed, host)
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if isBlockedIP(a.IP) {
			return nil, fmt.Errorf("%w: %s (resolved from %s)", ErrSSRFBlocked, a.IP, host)
		}
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// CheckRedirect validates redirect targets and bounds the redirect chain.
// A nil resolver means net.DefaultResolver.
func CheckRedirect(maxRedirects int, resolver Resolver) func(req *http.Request, via []*http.Request) error {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: limit is %d", ErrSSRFTooManyRedirects, maxRedirects)
		}
		host := req.URL.Hostname()
		if host == "" {
			return fmt.Errorf("%w: redirect URL has no host", ErrSSRFBlocked)
		}
		_, err := resolveAllowed(req.Context(), resolver, host)
		return err
	}
}

// ValidateLiteralHost rejects URLs whose host is a blocked IP literal. It is
// the load-time check; names are only resolved when dialing.
func ValidateLiteralHost(rawURL string) error {
	if err := initBlockedNets(); err != nil {
		return err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("%w: unable to extract host from URL", ErrSSRFBlocked)
	}
	if ip := net.ParseIP(parsed.Hostname()); ip != nil && isBlockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrSSRFBlocked, ip)
	}
	return nil
}

// NewSafeHTTPClient is the client webhook channels use in production.
func NewSafeHTTPClient(timeout time.Duration, maxRedirects int) (*http.Client, error) {
	transport, err := NewSafeTransport(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: CheckRedirect(maxRedirects, nil),
	}, nil
}
