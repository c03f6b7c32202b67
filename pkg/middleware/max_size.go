package middleware

import "net/http"

// MaxRequestSize caps request bodies. Multipart uploads get uploadLimit, every
// other body gets limit.
func MaxRequestSize(limit, uploadLimit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				size := int64(limit)
				if extractContentType(r.Header.Get("Content-Type")) == ContentTypeMultipart {
					size = int64(uploadLimit)
				}
				r.Body = http.MaxBytesReader(w, r.Body, size)
			}
			next.ServeHTTP(w, r)
		})
	}
}
