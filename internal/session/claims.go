package session

import (
	"fmt"

	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// EmailClaim is the namespaced claim the DoDeck login action adds to tokens.
const EmailClaim = models.EmailClaim

// UserFromIDToken reads profile claims from an ID token.
//
// The signature is not checked: the token came straight from the identity provider's token
// endpoint over TLS and is only used for display.
func UserFromIDToken(idToken string) (*models.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("%w: id token: %v", shared.ErrInvalidResponse, err)
	}

	user := models.UserFromClaims(claims)
	if user.Subject == "" {
		return nil, fmt.Errorf("%w: id token has no subject", shared.ErrInvalidResponse)
	}
	return user, nil
}

func idTokenOf(token *oauth2.Token) string {
	if token == nil {
		return ""
	}
	s, _ := token.Extra("id_token").(string)
	return s
}
