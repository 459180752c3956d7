package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/coursecertificate/core"
	"github.com/trezcool/coursecertificate/core/certificate"
)

const (
	// RoleManage allows to configure certificate activities and act on their issues.
	RoleManage = "certificate:manage"
	// RoleManageTemplates allows to manage the templates of the certificate service.
	RoleManageTemplates = "certificate:managetemplates"
	// RoleEvents is held by the LMS posting completion events.
	RoleEvents = "lms:events"

	tokenContextKey = "userToken"
	audience        = "LMS"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func (c Claims) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	owned := append([]string(nil), c.Roles...)
	sort.Strings(owned)
	for _, role := range roles {
		if i := sort.SearchStrings(owned, role); i < len(owned) && owned[i] == role {
			return true
		}
	}
	return false
}

func (c Claims) Actor() core.Actor {
	return core.Actor{ID: c.Subject, Name: c.Name, Email: c.Email}
}

// NewClaims returns the claims of actor, valid for conf.Server.JWTExpirationDelta.
func NewClaims(conf *core.Config, actor core.Actor, roles ...string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   actor.ID,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  actor.Name,
		Email: actor.Email,
		Roles: roles,
	}
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	cfg := jwtConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(cfg.SigningMethod), claims)

	ss, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// templateContext is the context certificate templates are listed in for the requester.
func templateContext(ctx echo.Context, courseID string) (certificate.TemplateContext, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return certificate.TemplateContext{}, err
	}
	return certificate.TemplateContext{
		CourseID:           courseID,
		UserID:             claims.Subject,
		CanManageTemplates: claims.HasAnyRole(RoleManageTemplates),
	}, nil
}
