package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func newTestRouter(tracer *Tracer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))

	router.GET("/hello/:name", func(c *gin.Context) {
		AttachUser(c.Request.Context(), "user-7")
		c.JSON(http.StatusOK, gin.H{"greeting": c.Param("name")})
	})
	router.GET("/broken", func(c *gin.Context) {
		_ = c.Error(errors.New("handler blew up"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	})

	return router
}

func doRequest(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHTTPMiddlewareCorrelationHeaders(t *testing.T) {
	tracer, _ := newTestTracer()
	router := newTestRouter(tracer)

	t.Run("echoes supplied correlation id exactly", func(t *testing.T) {
		w := doRequest(router, "/hello/world", map[string]string{
			HeaderCorrelationID: "corr-from-client",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "corr-from-client", w.Header().Get(HeaderCorrelationID))
	})

	t.Run("generates both when absent", func(t *testing.T) {
		w := doRequest(router, "/hello/world", nil)

		assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	})

	t.Run("request ids never repeat", func(t *testing.T) {
		first := doRequest(router, "/hello/world", nil).Header().Get(HeaderRequestID)
		second := doRequest(router, "/hello/world", nil).Header().Get(HeaderRequestID)

		require.NotEmpty(t, first)
		assert.NotEqual(t, first, second)
	})
}

func TestHTTPMiddlewareRootSpan(t *testing.T) {
	tracer, exporter := newTestTracer()
	router := newTestRouter(tracer)

	doRequest(router, "/hello/world", nil)

	spans := exporter.exported()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "HTTP GET /hello/:name", span.Name())
	assert.Empty(t, span.ParentID(), "request span is the trace root")
	assert.Equal(t, StatusOk, span.Status())

	v, ok := span.Attribute(AttrHTTPMethod)
	require.True(t, ok)
	assert.Equal(t, "GET", v)

	v, ok = span.Attribute(AttrHTTPRoute)
	require.True(t, ok)
	assert.Equal(t, "/hello/:name", v)

	v, ok = span.Attribute(AttrHTTPStatus)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, v)

	t.Run("authenticated user attached", func(t *testing.T) {
		v, ok := span.Attribute(AttrUserID)
		require.True(t, ok)
		assert.Equal(t, "user-7", v)
	})
}

func TestHTTPMiddlewareErrorPath(t *testing.T) {
	tracer, exporter := newTestTracer()
	router := newTestRouter(tracer)

	w := doRequest(router, "/broken", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	t.Run("span ends with error on failure exit", func(t *testing.T) {
		spans := exporter.exported()
		require.Len(t, spans, 1)
		assert.True(t, spans[0].Ended())
		assert.Equal(t, StatusError, spans[0].Status())
		require.NotNil(t, spans[0].ErrorInfo())
		assert.Contains(t, spans[0].ErrorInfo().Message, "handler blew up")
	})

	t.Run("headers still present on failure", func(t *testing.T) {
		assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
		assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	})
}

func TestGRPCUnaryInterceptor(t *testing.T) {
	tracer, exporter := newTestTracer()
	interceptor := GRPCUnaryInterceptor(tracer)

	info := &grpc.UnaryServerInfo{FullMethod: "/callwise.CallService/StartFlow"}

	t.Run("successful call", func(t *testing.T) {
		var handlerCtx context.Context
		resp, err := interceptor(context.Background(), "request", info,
			func(ctx context.Context, req interface{}) (interface{}, error) {
				handlerCtx = ctx
				return "response", nil
			})
		require.NoError(t, err)
		assert.Equal(t, "response", resp)

		// Handler ran inside the span's scope.
		span, ok := SpanFromContext(handlerCtx)
		require.True(t, ok)
		assert.Equal(t, "/callwise.CallService/StartFlow", span.Name())

		spans := exporter.exported()
		require.Len(t, spans, 1)

		v, ok := spans[0].Attribute(AttrRPCProcedure)
		require.True(t, ok)
		assert.Equal(t, "/callwise.CallService/StartFlow", v)
	})

	t.Run("correlation id from metadata", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(),
			metadata.Pairs(HeaderCorrelationID, "corr-rpc-1"))

		_, err := interceptor(ctx, "request", info,
			func(ctx context.Context, req interface{}) (interface{}, error) {
				assert.Equal(t, "corr-rpc-1", CorrelationFromContext(ctx).String())
				return nil, nil
			})
		require.NoError(t, err)
	})

	t.Run("error propagates unchanged and span records it", func(t *testing.T) {
		before := len(exporter.exported())
		sentinel := errors.New("rpc failed")

		_, err := interceptor(context.Background(), "request", info,
			func(ctx context.Context, req interface{}) (interface{}, error) {
				return nil, sentinel
			})
		assert.Same(t, sentinel, err)

		spans := exporter.exported()
		require.Len(t, spans, before+1)
		assert.Equal(t, StatusError, spans[len(spans)-1].Status())
	})
}
