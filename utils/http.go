package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared outbound client for payment-provider calls.
// Per-request deadlines are layered on via context; this is the hard cap.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
