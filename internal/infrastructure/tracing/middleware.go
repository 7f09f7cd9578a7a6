package tracing

import (
	"context"
	"fmt"

	"github.com/callwise/backend/internal/shared/id"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Headers consumed/produced at the request boundary.
const (
	HeaderCorrelationID = "x-correlation-id"
	HeaderRequestID     = "x-request-id"
)

// HTTPMiddleware creates Gin middleware that opens a root span per request.
//
// A caller-supplied x-correlation-id is echoed back verbatim; otherwise one
// is generated. x-request-id is always server-generated. Both headers are
// written before the handler runs so they reach the client on every exit
// path. The root span ends on every exit path too, including panics.
func HTTPMiddleware(t *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		corrID := id.ResolveCorrelationID(c.GetHeader(HeaderCorrelationID))
		reqID := id.NewRequestID()

		c.Header(HeaderCorrelationID, corrID.String())
		c.Header(HeaderRequestID, reqID.String())

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx := ContextWithCorrelation(c.Request.Context(), corrID, reqID)
		ctx, span := t.StartSpan(ctx, fmt.Sprintf("HTTP %s %s", c.Request.Method, route),
			WithAttributes(map[string]interface{}{
				AttrHTTPMethod:    c.Request.Method,
				AttrHTTPRoute:     route,
				AttrCorrelationID: corrID.String(),
				AttrRequestID:     reqID.String(),
			}))

		c.Request = c.Request.WithContext(ctx)

		defer func() {
			status := c.Writer.Status()
			span.SetAttribute(AttrHTTPStatus, status)

			if len(c.Errors) > 0 {
				span.RecordError(c.Errors.Last())
			} else if status >= 500 {
				span.RecordError(fmt.Errorf("request failed with status %d", status))
			}

			span.End()
		}()

		c.Next()
	}
}

// AttachUser stamps the authenticated user onto the active span. Called by
// the auth layer once identity is resolved; a no-op outside a traced scope.
func AttachUser(ctx context.Context, userID string) {
	if span, ok := SpanFromContext(ctx); ok {
		span.SetAttribute(AttrUserID, userID)
	}
}

// GRPCUnaryInterceptor creates a gRPC unary interceptor opening a root span
// per procedure call. Correlation metadata mirrors the HTTP contract.
func GRPCUnaryInterceptor(t *Tracer) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		corrID := id.ResolveCorrelationID(incomingMetadataValue(ctx, HeaderCorrelationID))
		reqID := id.NewRequestID()

		// Best effort: streaming-unaware clients still get the IDs back.
		_ = grpc.SetHeader(ctx, metadata.Pairs(
			HeaderCorrelationID, corrID.String(),
			HeaderRequestID, reqID.String(),
		))

		ctx = ContextWithCorrelation(ctx, corrID, reqID)
		ctx, span := t.StartSpan(ctx, info.FullMethod,
			WithAttributes(map[string]interface{}{
				AttrRPCSystem:     "grpc",
				AttrRPCProcedure:  info.FullMethod,
				AttrCorrelationID: corrID.String(),
				AttrRequestID:     reqID.String(),
			}))

		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		return handler(ctx, req)
	}
}

// GRPCStreamInterceptor creates a gRPC stream interceptor. The span covers
// the whole stream lifetime.
func GRPCStreamInterceptor(t *Tracer) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		ctx := ss.Context()

		corrID := id.ResolveCorrelationID(incomingMetadataValue(ctx, HeaderCorrelationID))
		reqID := id.NewRequestID()

		_ = ss.SetHeader(metadata.Pairs(
			HeaderCorrelationID, corrID.String(),
			HeaderRequestID, reqID.String(),
		))

		ctx = ContextWithCorrelation(ctx, corrID, reqID)
		ctx, span := t.StartSpan(ctx, info.FullMethod,
			WithAttributes(map[string]interface{}{
				AttrRPCSystem:     "grpc",
				AttrRPCProcedure:  info.FullMethod,
				"rpc.streaming":   true,
				AttrCorrelationID: corrID.String(),
				AttrRequestID:     reqID.String(),
			}))

		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		return handler(srv, &tracedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// tracedServerStream wraps grpc.ServerStream with the traced context.
type tracedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedServerStream) Context() context.Context {
	return s.ctx
}

func incomingMetadataValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
