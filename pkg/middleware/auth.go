package middleware

import (
	"carrental/pkg/auth"
	apperrors "carrental/pkg/errors"
	httputil "carrental/pkg/http"
	"carrental/pkg/logger"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

type TokenParser interface {
	Parse(token string) (*auth.Actor, error)
}

// Guard authenticates bearer tokens on individual routes.
type Guard struct {
	tokens TokenParser
	log    *logger.Logger
}

func NewGuard(tokens TokenParser, log *logger.Logger) *Guard {
	return &Guard{tokens: tokens, log: log}
}

func (g *Guard) Authenticated(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor, err := g.actorFromRequest(r)
		if err != nil {
			g.log.Warn("authentication failed",
				"request_id", RequestIDFrom(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			g.reject(w, err)
			return
		}

		next(w, r.WithContext(auth.WithActor(r.Context(), actor)), ps)
	}
}

// Require authenticates and then demands capability c.
func (g *Guard) Require(c auth.Capability, next httprouter.Handle) httprouter.Handle {
	return g.Authenticated(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor := auth.ActorFrom(r.Context())
		if !actor.Can(c) {
			g.log.Warn("capability missing",
				"request_id", RequestIDFrom(r.Context()),
				"user_id", actor.UserID,
				"role", actor.Role,
				"capability", string(c),
			)
			g.reject(w, apperrors.Forbidden("You do not have permission to perform this action"))
			return
		}
		next(w, r, ps)
	})
}

func (g *Guard) actorFromRequest(r *http.Request) (*auth.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, apperrors.Unauthorized("Authorization header must be 'Bearer <token>'")
	}

	actor, err := g.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}
	return actor, nil
}

func (g *Guard) reject(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		g.log.Error("failed to write error response", "middleware", "Guard", "operation", "WriteError", "error", writeErr)
	}
}
