package customHttpClient

import (
	"net/http"

	"github.com/mkolsari/streamrag/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// no Timeout on the client itself - generation streams can run for minutes,
// callers bound their requests with a context deadline instead
var pooledClient = &http.Client{Transport: customTransport}

// Pooled returns the shared backend client so the embedder and the
// generation client reuse connections.
func Pooled() *http.Client {
	return pooledClient
}
