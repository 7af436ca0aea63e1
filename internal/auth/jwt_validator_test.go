package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func TestTokenValidatorValidateSuccess(t *testing.T) {
	now := time.Now()
	token, err := jwt.NewBuilder().
		Issuer("issuer").
		Audience([]string{"aud"}).
		Subject("sub").
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(time.Minute)).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}

	validator := TokenValidator{Issuer: "issuer", Audience: "aud", ClockSkew: time.Second, Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestTokenValidatorIssuerMismatch(t *testing.T) {
	now := time.Now()
	token, _ := jwt.NewBuilder().
		Issuer("other").
		Audience([]string{"aud"}).
		Subject("sub").
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(time.Minute)).
		Build()

	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestTokenValidatorExpiry(t *testing.T) {
	now := time.Now()
	token, _ := jwt.NewBuilder().
		Issuer("issuer").
		Audience([]string{"aud"}).
		Subject("sub").
		IssuedAt(now.Add(-2 * time.Hour)).
		NotBefore(now.Add(-2 * time.Hour)).
		Expiration(now.Add(-time.Minute)).
		Build()

	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected expiration error")
	}
}

func TestTokenValidatorNotBefore(t *testing.T) {
	now := time.Now()
	token, _ := jwt.NewBuilder().
		Issuer("issuer").
		Audience([]string{"aud"}).
		Subject("sub").
		IssuedAt(now).
		NotBefore(now.Add(5 * time.Minute)).
		Expiration(now.Add(10 * time.Minute)).
		Build()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256, ClockSkew: time.Second}
	if err := validator.Validate(token, jwa.HS256, now); err == nil {
		t.Fatal("expected not-before validation error")
	}
}

func TestTokenValidatorAlgorithmMismatch(t *testing.T) {
	now := time.Now()
	token, _ := jwt.NewBuilder().
		Issuer("issuer").
		Audience([]string{"aud"}).
		Subject("sub").
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", Algorithm: jwa.HS256}
	if err := validator.Validate(token, jwa.RS256, now); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}

func TestTokenValidatorRole(t *testing.T) {
	now := time.Now()
	build := func(role string) jwt.Token {
		b := jwt.NewBuilder().Subject("sub").Expiration(now.Add(time.Minute))
		if role != "" {
			b = b.Claim(ClaimRole, role)
		}
		tok, err := b.Build()
		if err != nil {
			t.Fatalf("build token: %v", err)
		}
		return tok
	}
	validator := TokenValidator{Algorithm: jwa.HS256, Role: RoleAdmin}
	if err := validator.Validate(build(RoleAdmin), jwa.HS256, now); err != nil {
		t.Fatalf("validate admin: %v", err)
	}
	if err := validator.Validate(build("customer"), jwa.HS256, now); err == nil {
		t.Fatal("expected role mismatch error")
	}
	if err := validator.Validate(build(""), jwa.HS256, now); err == nil {
		t.Fatal("expected missing role error")
	}
}

func TestTokenValidatorRequiresSubjectAndExpiry(t *testing.T) {
	now := time.Now()
	noSubject, _ := jwt.NewBuilder().Expiration(now.Add(time.Minute)).Build()
	if err := (TokenValidator{}).Validate(noSubject, jwa.HS256, now); err == nil {
		t.Fatal("expected missing subject error")
	}
	noExpiry, _ := jwt.NewBuilder().Subject("sub").Build()
	if err := (TokenValidator{}).Validate(noExpiry, jwa.HS256, now); err == nil {
		t.Fatal("expected missing expiry error")
	}
}
