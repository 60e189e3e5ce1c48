// Package dns contains the DNS provider registry, the provider adapters for
// publishing ACME DNS-01 challenge records, and the AWS SigV4 request signer
// used by the Route53 adapter.
package dns

import "strings"

// RootDomain derives the zone that owns a fully-qualified name by taking its
// last two labels: "a.b.example.com" -> "example.com". Multi-level public
// suffixes (example.co.uk) are misclassified by this policy; see the
// limitation note in DESIGN.md.
func RootDomain(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return domain
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// relativeRecordName strips the root domain suffix from a record name,
// yielding the host-relative name providers like GoDaddy and DigitalOcean
// expect: ("_acme-challenge.sub.example.com", "sub.example.com") ->
// "_acme-challenge.sub".
func relativeRecordName(recordName, domain string) string {
	suffix := "." + RootDomain(domain)
	return strings.TrimSuffix(recordName, suffix)
}
