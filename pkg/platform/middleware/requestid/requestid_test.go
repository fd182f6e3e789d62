package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasmeter/pkg/requestcontext"
)

func serve(t *testing.T, inbound string) (ctxID string, rr *httptest.ResponseRecorder) {
	t.Helper()
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = requestcontext.RequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(Header, inbound)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return ctxID, rr
}

func TestMiddleware(t *testing.T) {
	t.Run("generates a uuid", func(t *testing.T) {
		id, rr := serve(t, "")
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, rr.Header().Get(Header))
	})

	t.Run("reuses inbound id", func(t *testing.T) {
		id, rr := serve(t, "trace-abc")
		assert.Equal(t, "trace-abc", id)
		assert.Equal(t, "trace-abc", rr.Header().Get(Header))
	})

	t.Run("replaces oversized inbound id", func(t *testing.T) {
		id, _ := serve(t, strings.Repeat("x", maxInboundLength+1))
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})
}
