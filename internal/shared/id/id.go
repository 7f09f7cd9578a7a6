// Package id provides centralized identifier generation for the backend.
//
// Two identifier families live here:
//   - Request-boundary IDs (CorrelationID, RequestID): prefixed ULIDs and
//     UUIDs, readable in logs (corr_*, req_*).
//   - Trace IDs (TraceID, SpanID): W3C-style lowercase hex, 128-bit and
//     64-bit respectively, matching what trace collectors expect on the wire.
//
// Correlation IDs may also arrive from callers; ResolveCorrelationID echoes
// a non-empty caller value verbatim and generates otherwise, so the function
// never fails.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// CorrelationID links logs and traces across a request's external boundary.
type CorrelationID string

// RequestID identifies a single inbound request. Always server-generated.
type RequestID string

// TraceID identifies one causal chain of spans. 32 lowercase hex characters.
type TraceID string

// SpanID identifies one span within a trace. 16 lowercase hex characters.
type SpanID string

const (
	CorrelationPrefix = "corr"
	RequestPrefix     = "req"

	traceIDHexLen = 32
	spanIDHexLen  = 16
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewCorrelationID generates a new correlation identifier.
//
// UUIDv4 rather than ULID: correlation IDs cross system boundaries and are
// compared byte-for-byte by other services, so the opaque, unordered format
// is the safer contract.
func NewCorrelationID() CorrelationID {
	return CorrelationID(fmt.Sprintf("%s_%s", CorrelationPrefix, uuid.NewString()))
}

// ResolveCorrelationID returns the caller-supplied value when non-empty,
// otherwise a freshly generated correlation ID. Never fails.
func ResolveCorrelationID(headerValue string) CorrelationID {
	if headerValue != "" {
		return CorrelationID(headerValue)
	}
	return NewCorrelationID()
}

// NewRequestID generates a new request identifier.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewTraceID generates a 128-bit trace identifier.
func NewTraceID() TraceID {
	return TraceID(randomHex(traceIDHexLen / 2))
}

// NewSpanID generates a 64-bit span identifier.
func NewSpanID() SpanID {
	return SpanID(randomHex(spanIDHexLen / 2))
}

func randomHex(byteLen int) string {
	buf := make([]byte, byteLen)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		// crypto/rand never fails on supported platforms; a broken entropy
		// source is unrecoverable for ID generation anyway.
		panic(fmt.Sprintf("id: entropy source failed: %v", err))
	}
	return hex.EncodeToString(buf)
}

// String methods for ID types
func (id CorrelationID) String() string { return string(id) }
func (id RequestID) String() string     { return string(id) }
func (id TraceID) String() string       { return string(id) }
func (id SpanID) String() string        { return string(id) }

// IsValidTraceID reports whether s is a well-formed, non-zero trace ID.
func IsValidTraceID(s string) bool {
	return isValidHexID(s, traceIDHexLen)
}

// IsValidSpanID reports whether s is a well-formed, non-zero span ID.
func IsValidSpanID(s string) bool {
	return isValidHexID(s, spanIDHexLen)
}

func isValidHexID(s string, length int) bool {
	if len(s) != length {
		return false
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return false
	}
	for _, b := range decoded {
		if b != 0 {
			return true
		}
	}
	return false
}

// IsValidULID checks if an ID string is a valid ULID.
func IsValidULID(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}
