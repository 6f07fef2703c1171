// Package device extracts the reporting device's identity from requests.
// The app allows anonymous reporting, so the X-Device-ID header is the only
// identity confirmations and cooldowns can key on. The middleware does not
// reject requests without the header; endpoints that need an identity fail
// with a validation error instead.
package device

import (
	"net/http"
	"strings"

	"deicer/pkg/requestcontext"
)

const headerName = "X-Device-ID"

// maxDeviceIDLength bounds the value so a hostile client cannot bloat the
// cooldown keyspace with arbitrarily long identifiers.
const maxDeviceIDLength = 128

// Extract reads the X-Device-ID header into the request context.
func Extract(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := strings.TrimSpace(r.Header.Get(headerName))
		if len(deviceID) > maxDeviceIDLength {
			deviceID = deviceID[:maxDeviceIDLength]
		}
		if deviceID == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := requestcontext.WithDeviceID(r.Context(), deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
