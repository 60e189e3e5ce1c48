package model

import "time"

// ChallengeToken is an ephemeral HTTP-01 challenge artifact. It is written
// when the CA issues a challenge and served verbatim by the well-known
// responder until the order completes, at which point all tokens for the
// domain are deleted. Multiple tokens per domain may coexist transiently.
type ChallengeToken struct {
	ID               int64
	Domain           string
	Token            string
	KeyAuthorization string
	CreatedAt        time.Time
}
