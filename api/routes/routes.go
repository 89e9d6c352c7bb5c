package routes

import (
	"time"

	"tokensmith/api/handler"
	"tokensmith/api/middleware"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo        *echo.Echo
	Tokens      *handler.TokenHandler
	RequestRate *middleware.RateLimiter
	ConsumeRate *middleware.RateLimiter
}

func NewRouter(e *echo.Echo, tokenHandler *handler.TokenHandler) *Router {
	return &Router{
		Echo:        e,
		Tokens:      tokenHandler,
		RequestRate: middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
		ConsumeRate: middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	e.POST("/tokens/email-verification", r.Tokens.RequestEmailVerification, r.RequestRate.Middleware())
	e.POST("/tokens/password-reset", r.Tokens.RequestPasswordReset, r.RequestRate.Middleware())
	e.POST("/verify-email", r.Tokens.VerifyEmail, r.ConsumeRate.Middleware())
	e.POST("/password/reset", r.Tokens.ResetPassword, r.ConsumeRate.Middleware())
}
