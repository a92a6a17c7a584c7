package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Makepad-fr/tada/internal/api"
)

var (
	ErrInvalidCredentials = errors.New("Credenciales inválidas. Por favor, verifica tu email y contraseña.")
	ErrConnection         = errors.New("Error al conectar con el servidor. Por favor, intenta nuevamente más tarde.")
	ErrEmailTaken         = errors.New("email registrado. Favor intenta con otro email.")
	ErrRegister           = errors.New("Se produjo un error al registrar el usuario. Por favor, intenta nuevamente más tarde.")
	ErrMissingCredentials = errors.New("Debes ingresar email y contraseña.")
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Auth talks to /auth. Its calls never carry a bearer token.
type Auth struct {
	t Transport
}

func NewAuth(t Transport) *Auth { return &Auth{t: t} }

// Login exchanges credentials for a bearer token.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}
	var raw json.RawMessage
	err := a.t.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   credentials{Email: email, Password: password},
		NoAuth: true,
	}, &raw)
	if err != nil {
		if api.IsStatus(err, http.StatusUnauthorized) {
			return "", ErrInvalidCredentials
		}
		return "", friendly(ErrConnection, err)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(unwrapData(raw), &resp); err != nil || resp.Token == "" {
		return "", ErrConnection
	}
	return resp.Token, nil
}

// Register creates an account. The user still has to log in afterwards.
func (a *Auth) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return ErrMissingCredentials
	}
	err := a.t.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   credentials{Email: email, Password: password},
		NoAuth: true,
	}, nil)
	if err != nil {
		if api.IsStatus(err, http.StatusConflict) {
			return ErrEmailTaken
		}
		return friendly(ErrRegister, err)
	}
	return nil
}
