package middleware

import (
	"github.com/cellannotation/cas/internal/queue"
	"github.com/cellannotation/cas/internal/storage"
	"github.com/cellannotation/cas/pkg/store"
	"github.com/cellannotation/cas/pkg/taxonomy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      int32
	Role        string
	Permissions []string
}

// KeyProvider resolves the verification key of a JWT. keyfunc.Keyfunc
// satisfies it.
type KeyProvider interface {
	Keyfunc(token *jwt.Token) (any, error)
}

// Builder is the taxonomy pipeline used by the synchronous build route.
type Builder = queue.Builder

type App struct {
	Store          store.TaxonomyStorage
	Queue          queue.Publisher
	Key            KeyProvider
	Objects        storage.ObjectStore
	Builder        Builder
	Namespace      string
	MasterAPIKey   string
	MasterUserID   int32
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}

var _ Builder = (*taxonomy.Client)(nil)
