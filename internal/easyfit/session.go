package easyfit

import (
	"net/http"
	"time"
)

// Session is an authenticated platform session with a bounded lifetime. It is
// created by Client.Login and passed explicitly into every call that needs
// it; nothing in this package caches a session globally.
type Session struct {
	cookies   []*http.Cookie
	expiresAt time.Time
}

// NewSession builds a session from raw cookies and an expiry instant. Login
// is the normal way to get one.
func NewSession(cookies []*http.Cookie, expiresAt time.Time) *Session {
	return &Session{cookies: cookies, expiresAt: expiresAt}
}

// Valid reports whether the session can still be used at the given instant.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && now.Before(s.expiresAt)
}

func (s *Session) attach(req *http.Request) {
	if s == nil {
		return
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
}
