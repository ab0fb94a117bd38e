package models

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags on v and flattens field errors into one message.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid %T: %s", v, strings.Join(msgs, ", "))
}

// Deck is a deck summary. It is shown as the service sent it.
type Deck struct {
	ID            string `json:"deckId,omitempty"`
	Name          string `json:"name"`
	IsOwner       bool   `json:"isOwner"`
	Collaborators int    `json:"collaborators"`
}

// DisplayName is the name to render, with a placeholder for blank names.
func (d Deck) DisplayName() string {
	if strings.TrimSpace(d.Name) == "" {
		return "Untitled deck"
	}
	return d.Name
}

// DeckDetail is the full view of a deck.
type DeckDetail struct {
	ID            string    `json:"deckId" validate:"required"`
	Name          string    `json:"name" validate:"required"`
	IsOwner       bool      `json:"isOwner"`
	OwnerSub      string    `json:"ownerSub" validate:"required"`
	Collaborators []string  `json:"collaborators"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Do is a to-do item within a deck.
type Do struct {
	ID        string    `json:"doId" validate:"required"`
	DeckID    string    `json:"deckId" validate:"required"`
	Text      string    `json:"text" validate:"required,max=1000"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Normalize trims the do text.
func (d *Do) Normalize() { d.Text = strings.TrimSpace(d.Text) }

// DeckExport is a deck with all of its dos.
type DeckExport struct {
	Deck Deck `json:"deck"`
	Dos  []Do `json:"dos"`
}

// Completed counts the completed dos.
func (e *DeckExport) Completed() int {
	n := 0
	for _, d := range e.Dos {
		if d.Completed {
			n++
		}
	}
	return n
}

// Namespaced claims added to DoDeck tokens by the identity provider's login action.
const (
	EmailClaim         = "https://dodeck.app/email"
	EmailVerifiedClaim = "https://dodeck.app/email_verified"
)

// UserFromClaims reads the profile from token claims. The namespaced email claims win over the
// standard ones and the email is lower-cased.
func UserFromClaims(claims map[string]any) *User {
	user := &User{}
	user.Subject, _ = claims["sub"].(string)
	user.Name, _ = claims["name"].(string)

	email, _ := claims[EmailClaim].(string)
	if email == "" {
		email, _ = claims["email"].(string)
	}
	user.Email = strings.ToLower(strings.TrimSpace(email))

	if v, ok := claims[EmailVerifiedClaim]; ok {
		user.EmailVerified, _ = v.(bool)
	} else {
		user.EmailVerified, _ = claims["email_verified"].(bool)
	}
	return user
}

// User holds the profile claims of the signed-in user.
type User struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Display returns the best human label for the user.
func (u *User) Display() string {
	if u == nil {
		return ""
	}
	switch {
	case u.Email != "":
		return u.Email
	case u.Name != "":
		return u.Name
	default:
		return u.Subject
	}
}

// Credential is the durable form of an identity provider token set.
type Credential struct {
	Key          string
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Expiry       time.Time
}

// NewCredential captures token under key. The id_token extra is kept when present.
func NewCredential(key string, token *oauth2.Token) *Credential {
	c := &Credential{
		Key:          key,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		c.IDToken = idToken
	}
	return c
}

// Token rebuilds the [oauth2.Token], carrying the id_token as an extra.
func (c *Credential) Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
	if c.IDToken != "" {
		token = token.WithExtra(map[string]any{"id_token": c.IDToken})
	}
	return token
}

// Validate reports whether the credential can restore a session.
func (c *Credential) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("credential key is required")
	}
	if c.RefreshToken == "" && c.AccessToken == "" {
		return fmt.Errorf("credential has neither access nor refresh token")
	}
	return nil
}
