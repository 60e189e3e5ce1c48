package dns

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const signingAlgorithm = "AWS4-HMAC-SHA256"

// SignV4Params carries everything the signer needs. The signer is pure:
// identical inputs always produce identical headers, which is what makes it
// testable against published AWS vectors.
type SignV4Params struct {
	Method          string
	URL             *url.URL
	Body            []byte
	Region          string
	Service         string
	AccessKeyID     string
	SecretAccessKey string
	Now             time.Time
}

// SignV4 computes the AWS Signature Version 4 header set for a request:
// Host, X-Amz-Date, Content-Type (only when a body is present), and
// Authorization. Network failures are the caller's concern; the signer
// itself fails only on malformed input.
func SignV4(p SignV4Params) (map[string]string, error) {
	if p.Region == "" || p.Service == "" {
		return nil, errors.New("sigv4: region and service must be non-empty")
	}
	if p.URL == nil {
		return nil, errors.New("sigv4: url must be non-nil")
	}

	amzDate := p.Now.UTC().Format("20060102T150405Z")
	dateStamp := amzDate[:8]

	headers := map[string]string{
		"Host":       p.URL.Host,
		"X-Amz-Date": amzDate,
	}
	if len(p.Body) > 0 {
		headers["Content-Type"] = "application/xml"
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)

	lowered := make(map[string]string, len(headers))
	for name, value := range headers {
		lowered[strings.ToLower(name)] = strings.TrimSpace(value)
	}

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(lowered[name])
		canonicalHeaders.WriteByte('\n')
	}
	signedHeaders := strings.Join(names, ";")

	payloadHash := hexSHA256(p.Body)

	path := p.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	canonicalRequest := strings.Join([]string{
		p.Method,
		path,
		p.URL.RawQuery,
		canonicalHeaders.String(),
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := strings.Join([]string{dateStamp, p.Region, p.Service, "aws4_request"}, "/")

	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		credentialScope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	// Signing key: HMAC chain secret -> date -> region -> service -> aws4_request.
	kDate := hmacSHA256([]byte("AWS4"+p.SecretAccessKey), dateStamp)
	kRegion := hmacSHA256(kDate, p.Region)
	kService := hmacSHA256(kRegion, p.Service)
	kSigning := hmacSHA256(kService, "aws4_request")
	signature := hex.EncodeToString(hmacSHA256(kSigning, stringToSign))

	headers["Authorization"] = fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		signingAlgorithm, p.AccessKeyID, credentialScope, signedHeaders, signature,
	)

	return headers, nil
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
