package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients so repeated model and
// embedding calls keep their TCP connections warm.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client that shares a connection pool with
// other pooled clients. A zero timeout leaves deadlines to the caller's
// context, which is what the pipelines expect.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
