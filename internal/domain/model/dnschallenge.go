package model

// DNSChallenge describes the TXT record a DNS provider must publish for an
// ACME DNS-01 challenge. RecordValue is the base64url (no padding) SHA-256
// digest of the key authorization.
type DNSChallenge struct {
	Domain      string
	RecordName  string
	RecordValue string
}
