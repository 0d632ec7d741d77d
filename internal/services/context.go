package services

import "net/http"

// UserIDFromContext extracts the authenticated user ID placed in the request
// context by the auth middleware.
func UserIDFromContext(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value("userID").(int64)
	return id, ok
}
