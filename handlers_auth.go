package main

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"fieldfusion/models"
	"fieldfusion/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// handleRegister creates an unverified user and mails the verification link.
func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "hash error", http.StatusInternalServerError)
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleFarmer
	}
	u := models.User{
		Name:              req.Name,
		Email:             models.NormalizeEmail(req.Email),
		Mobile:            req.Mobile,
		PasswordHash:      string(hash),
		Role:              role,
		VerificationToken: uuid.NewString(),
		CreatedAt:         a.clock.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.store.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	link := a.cfg.PublicBaseURL + "/api/auth/verify/" + u.VerificationToken
	if err := a.mailer.SendVerification(ctx, u.Email, u.Name, link); err != nil {
		a.log.Error("verification mail failed", "email", u.Email, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(u)
}

var verifyPage = template.Must(template.New("verify").Parse(`<!doctype html>
<html>
<head>
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; background: #f4f8fb; display: flex; justify-content: center; align-items: center; height: 100vh; }
.card { background: white; padding: 30px; border-radius: 12px; box-shadow: 0 4px 15px rgba(0,0,0,0.1); text-align: center; }
h1.ok { color: #28a745; }
h1.err { color: #c0392b; }
p { color: #555; }
</style>
</head>
<body>
<div class="card">
<h1 class="{{if .OK}}ok{{else}}err{{end}}">{{.Title}}</h1>
<p>{{.Message}}</p>
</div>
</body>
</html>
`))

type verifyView struct {
	OK      bool
	Title   string
	Message string
}

func renderVerify(w http.ResponseWriter, status int, v verifyView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = verifyPage.Execute(w, v)
}

// handleVerify confirms the email behind a verification token.
func (a *App) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := a.store.VerifyUser(ctx, chi.URLParam(r, "token"))
	if errors.Is(err, store.ErrNotFound) {
		renderVerify(w, http.StatusBadRequest, verifyView{
			Title:   "Invalid or expired verification link.",
			Message: "Register again or ask for a new link.",
		})
		return
	}
	if err != nil {
		renderVerify(w, http.StatusInternalServerError, verifyView{
			Title:   "Something went wrong.",
			Message: "Please try the link again later.",
		})
		return
	}

	if err := a.mailer.SendWelcome(ctx, u.Email, u.Name); err != nil {
		a.log.Error("welcome mail failed", "email", u.Email, "err", err)
	}
	renderVerify(w, http.StatusOK, verifyView{
		OK:      true,
		Title:   "Email Verified Successfully!",
		Message: "A welcome email has been sent to your inbox. You can close this window.",
	})
}

// handleLogin verifies credentials and returns a JWT token.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := a.store.UserByEmail(ctx, req.Email)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if !u.IsVerified {
		http.Error(w, "email not verified", http.StatusForbidden)
		return
	}

	tok, err := signJWT(a.cfg.JWTSecret, u.ID, a.clock.Now())
	if err != nil {
		http.Error(w, "jwt error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResp{Token: tok})
}

// handleMe returns the current user's profile (without password hash).
func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := a.store.UserByID(ctx, uid)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(u)
}
