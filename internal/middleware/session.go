package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/stemsi/toefl-quiz-backend/internal/limiter"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
)

const (
	// ContextKeyCaller is the Gin context key for the resolved model.Caller.
	ContextKeyCaller = "caller"

	// SessionTokenHeader lets clients without cookie support present a guest token.
	SessionTokenHeader = "X-Session-Token"
)

// ResolveCaller builds the request's model.Caller from the member claims set
// by OptionalMemberJWT, the guest session cookie and the client address.
// Must run after OptionalMemberJWT.
func ResolveCaller(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := model.Caller{Address: limiter.ClientAddress(c.Request.Header)}

		if claims := GetClaims(c); claims != nil {
			if id, err := claims.UserID(); err == nil {
				caller.UserID = &id
			}
		}

		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			caller.SessionToken = token
		} else {
			caller.SessionToken = c.GetHeader(SessionTokenHeader)
		}

		c.Set(ContextKeyCaller, caller)
		c.Next()
	}
}

// GetCaller returns the caller resolved by ResolveCaller. Without the
// middleware it falls back to an anonymous guest at the request's address.
func GetCaller(c *gin.Context) model.Caller {
	if val, ok := c.Get(ContextKeyCaller); ok {
		if caller, ok := val.(model.Caller); ok {
			return caller
		}
	}
	return model.Guest(limiter.ClientAddress(c.Request.Header), "")
}
