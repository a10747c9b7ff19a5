// Package dnscheck verifies that subscriber ids name resolvable domains
// before subscription requests are signed.
package dnscheck

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// DefaultNameserver is used when no resolver configuration can be read.
const DefaultNameserver = "127.0.0.53:53"

// Resolver checks subscriber domains against a single nameserver.
type Resolver struct {
	nameserver string
	client     *dns.Client
	log        *slog.Logger
}

var _ interfaces.DomainChecker = (*Resolver)(nil)

// NewResolver creates a resolver querying nameserver (host:port). An empty
// nameserver selects the first server of /etc/resolv.conf.
func NewResolver(nameserver string, timeout time.Duration, log *slog.Logger) *Resolver {
	if nameserver == "" {
		nameserver = systemNameserver()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		nameserver: nameserver,
		client:     &dns.Client{Timeout: timeout},
		log:        log,
	}
}

func systemNameserver() string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return DefaultNameserver
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}

// CheckDomain succeeds if domain has at least one A or AAAA record.
// Names that do not resolve fail with interfaces.ErrValidation, resolver
// failures with interfaces.ErrNetwork.
func (r *Resolver) CheckDomain(ctx context.Context, domain string) error {
	domain = strings.TrimSpace(domain)
	if _, ok := dns.IsDomainName(domain); !ok || domain == "" || !strings.Contains(strings.Trim(domain, "."), ".") {
		return fmt.Errorf("%w: %q is not a domain name", interfaces.ErrValidation, domain)
	}

	fqdn := dns.Fqdn(domain)
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addrs, err := r.resolve(ctx, fqdn, qtype)
		if err != nil {
			return err
		}
		if len(addrs) > 0 {
			r.log.Debug("Subscriber domain resolved", slog.String("domain", domain), slog.Any("addresses", addrs))
			return nil
		}
	}

	return fmt.Errorf("%w: subscriber domain %s does not resolve", interfaces.ErrValidation, domain)
}

func (r *Resolver) resolve(ctx context.Context, fqdn string, qtype uint16) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(fqdn, qtype)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.nameserver)
	if err != nil {
		return nil, fmt.Errorf("%w: dns query for %s: %v", interfaces.ErrNetwork, fqdn, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: dns query for %s: %s", interfaces.ErrNetwork, fqdn, dns.RcodeToString[in.Rcode])
	}

	addrs := make([]string, 0, len(in.Answer))
	for _, answer := range in.Answer {
		switch rr := answer.(type) {
		case *dns.A:
			addrs = append(addrs, rr.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rr.AAAA.String())
		}
	}
	return addrs, nil
}
