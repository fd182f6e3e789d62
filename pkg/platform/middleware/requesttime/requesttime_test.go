package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"biasmeter/pkg/requestcontext"
)

func TestMiddlewareSetsRequestTime(t *testing.T) {
	before := time.Now()
	var got time.Time
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.Now(r.Context())
		time.Sleep(time.Millisecond)
		assert.Equal(t, got, requestcontext.Now(r.Context()))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, got.Before(before))
}
