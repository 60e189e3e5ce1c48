package model

import "time"

// HookExecution is one append-only record of a deployment hook invocation.
type HookExecution struct {
	ID            int64
	CertificateID int64
	ExecutedAt    time.Time
	Success       bool
	Output        string
}
