// Package tracer provides a lightweight tracing abstraction.
//
// Services depend on the Tracer interface rather than on OpenTelemetry so the
// verification path can emit spans while tests run with NoopTracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it as failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	//
	// Example:
	//   ctx, span := tr.Start(ctx, tracer.SpanVerify,
	//       tracer.String(tracer.AttrSubject, subject.String()),
	//   )
	//   defer span.End(nil)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanVerify          = "claims.verify"
	SpanVerifySignature = "claims.verify_signature"
	SpanRecover         = "claims.recover_signer"
	SpanIssue           = "claims.issue"
	SpanRevoke          = "claims.revoke"
	SpanStoreLookup     = "claims.store_lookup"
)

// Attribute keys.
const (
	AttrSubject   = "claims.subject"
	AttrClaimType = "claims.claim_type"
	AttrClaimName = "claims.claim_name"
	AttrIssuer    = "claims.issuer"
	AttrSigner    = "claims.signer"
	AttrOutcome   = "claims.outcome"
	AttrCacheHit  = "cache.hit"
)
