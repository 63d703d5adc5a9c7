package api

import (
	"context"
	"errors"
)

// ErrAccessTokenExpired is returned by AccessTokenOnly when a refresh is needed.
var ErrAccessTokenExpired = errors.New("access token expired and doesn't support refreshing")

// ErrAccessTokenRequired is returned by calls that act on behalf of a user
// when the client was built with a ClientIDProvider only.
var ErrAccessTokenRequired = errors.New("auth provider does not provide an access token")

// ClientIDProvider provides the application's client id.
type ClientIDProvider interface {
	ClientID() string
}

// AccessTokenProvider additionally provides a user access token.
type AccessTokenProvider interface {
	ClientIDProvider
	// AccessToken returns the current token, or ok=false if it has to be refreshed.
	AccessToken() (token string, ok bool)
	// RefreshToken obtains a new access token.
	RefreshToken(ctx context.Context) (string, error)
}

// ClientID is a ClientIDProvider for a fixed client id.
type ClientID string

func (c ClientID) ClientID() string {
	return string(c)
}

// AccessTokenOnly is an AccessTokenProvider for a fixed access token that
// cannot be refreshed.
type AccessTokenOnly struct {
	ID    string
	Token string
}

func (a AccessTokenOnly) ClientID() string {
	return a.ID
}

func (a AccessTokenOnly) AccessToken() (string, bool) {
	return a.Token, a.Token != ""
}

func (a AccessTokenOnly) RefreshToken(context.Context) (string, error) {
	return "", ErrAccessTokenExpired
}

func accessToken(ctx context.Context, p AccessTokenProvider) (string, error) {
	if token, ok := p.AccessToken(); ok {
		return token, nil
	}
	token, err := p.RefreshToken(ctx)
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	return token, nil
}
