package middleware

import (
	"errors"
	"net/http"
	"strings"

	"quotes_service/internal/domain/policy"
	"quotes_service/internal/infrastructure/logger"
	"quotes_service/pkg"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "quotes.principal"

var errUnauthenticated = pkg.NewDomainErrorSimple("UNAUTHENTICATED", "Missing or invalid bearer token", http.StatusUnauthorized)

// QuoteClaims is the token shape issued by the identity provider. Roles may arrive with
// or without a ROLE_ prefix. Projects and Lots list the references a customer may see.
type QuoteClaims struct {
	Roles    []string `json:"roles"`
	Projects []string `json:"projects,omitempty"`
	Lots     []string `json:"lots,omitempty"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type AuthMiddleware struct {
	log    *logger.Logger
	cfg    AuthConfig
	parser *jwt.Parser
}

func NewAuthMiddleware(log *logger.Logger, cfg AuthConfig) *AuthMiddleware {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AuthMiddleware{log: log.With("middleware", "auth"), cfg: cfg, parser: jwt.NewParser(opts...)}
}

// RequireAuth resolves the bearer token into a policy.Principal. Role checks happen in
// the use cases, not here.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(errUnauthenticated.HTTPStatus, errUnauthenticated.ToHTTPError())
			return
		}
		p, err := am.Principal(tokenString)
		if err != nil {
			am.log.Debug("rejected bearer token", "error", err)
			c.AbortWithStatusJSON(errUnauthenticated.HTTPStatus, errUnauthenticated.ToHTTPError())
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func (am *AuthMiddleware) Principal(tokenString string) (policy.Principal, error) {
	claims := &QuoteClaims{}
	token, err := am.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(am.cfg.Secret), nil
	})
	if err != nil {
		return policy.Principal{}, err
	}
	if !token.Valid {
		return policy.Principal{}, errors.New("invalid token")
	}
	p := policy.NewPrincipal(claims.Subject, claims.Roles...).WithScope(claims.Projects, claims.Lots)
	if !p.Authenticated() {
		return policy.Principal{}, errors.New("token has no subject")
	}
	return p, nil
}

// PrincipalFrom returns the caller stored by RequireAuth, or an empty principal.
func PrincipalFrom(c *gin.Context) policy.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(policy.Principal); ok {
			return p
		}
	}
	return policy.Principal{}
}

// SetPrincipal is used by tests and internal callers that authenticate out of band.
func SetPrincipal(c *gin.Context, p policy.Principal) {
	c.Set(principalKey, p)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
