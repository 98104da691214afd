package handlers

import (
	"net/http"
	"time"

	"github.com/pipecraft/apiserver/config"
)

func sessionCookie(policy config.CookieConfig, name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: policy.SameSite,
	}
}

func setSessionCookies(w http.ResponseWriter, policy config.CookieConfig, access, refresh string) {
	http.SetCookie(w, sessionCookie(policy, accessCookie, access, policy.AccessMaxAge))
	http.SetCookie(w, sessionCookie(policy, refreshCookie, refresh, policy.RefreshMaxAge))
}

func clearSessionCookies(w http.ResponseWriter, policy config.CookieConfig) {
	for _, name := range []string{accessCookie, refreshCookie} {
		c := sessionCookie(policy, name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}
