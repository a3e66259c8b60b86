package storefront

import "net/http"

// SessionCookieName is the cookie that carries the cart session ID.
const SessionCookieName = "mercato_session"

// GetSessionIDFromCookie retrieves the session ID from the session cookie.
// Returns empty string if cookie is not present.
func GetSessionIDFromCookie(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetSessionCookie sets the session cookie with appropriate security settings.
func SetSessionCookie(w http.ResponseWriter, sessionID string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
