package handler

import (
	"net/http"
	"testing"
)

func TestPasswordResetRequestIsUniform(t *testing.T) {
	fx := newAuthFixture(t)
	fx.addUser(t, "worker1", "old-password-1")
	h := NewPasswordResetHandler(fx.auth, quietLogger())

	known := postJSON(t, h, "/api/auth/password-reset", `{"email":"worker1@example.com"}`)
	unknown := postJSON(t, h, "/api/auth/password-reset", `{"email":"nobody@example.com"}`)

	// Identical responses whether or not the address exists
	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Error("reset responses must not reveal whether the email exists")
	}
}

func TestPasswordResetFullFlow(t *testing.T) {
	fx := newAuthFixture(t)
	fx.addUser(t, "worker1", "old-password-1")
	h := NewPasswordResetHandler(fx.auth, quietLogger())

	rec := postJSON(t, h, "/api/auth/password-reset", `{"email":"worker1@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request phase failed: %d", rec.Code)
	}

	// The token is stored server-side; fish it out of the kv fake
	var token string
	for key := range fx.kv.values {
		token = key[len("pwreset:"):]
	}
	if token == "" {
		t.Fatal("no reset token stored")
	}

	confirm := postJSON(t, h, "/api/auth/password-reset",
		`{"token":"`+token+`","newPassword":"new-password-1"}`)
	if confirm.Code != http.StatusOK {
		t.Fatalf("confirm phase failed: %d %s", confirm.Code, confirm.Body.String())
	}

	// Old password no longer works, new one does
	login := NewLoginHandler(fx.auth, nil, fx.cfg, quietLogger())
	if rec := postJSON(t, login, "/api/auth/login", `{"identifier":"worker1","password":"old-password-1"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("old password still accepted: %d", rec.Code)
	}
	if rec := postJSON(t, login, "/api/auth/login", `{"identifier":"worker1","password":"new-password-1"}`); rec.Code != http.StatusOK {
		t.Errorf("new password rejected: %d %s", rec.Code, rec.Body.String())
	}

	// The token is single-use
	replay := postJSON(t, h, "/api/auth/password-reset",
		`{"token":"`+token+`","newPassword":"another-password-1"}`)
	if replay.Code != http.StatusBadRequest {
		t.Errorf("expected 400 on token reuse, got %d", replay.Code)
	}
}

func TestPasswordResetRejectsEmptyBody(t *testing.T) {
	fx := newAuthFixture(t)
	h := NewPasswordResetHandler(fx.auth, quietLogger())

	rec := postJSON(t, h, "/api/auth/password-reset", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
