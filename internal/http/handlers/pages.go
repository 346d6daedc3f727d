package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mlopez-dev/authhub/internal/domain/user"
	"github.com/mlopez-dev/authhub/internal/http/middlewares"
)

// Server-rendered shell pages. The real UI lives client-side; these exist
// so the page-level auth gates have concrete routes to protect and so the
// service is usable without a separate frontend build.

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} | AuthHub</title>
<style>
	body { font-family: system-ui, sans-serif; max-width: 40rem; margin: 4rem auto; padding: 0 1rem; }
	nav a { margin-right: 1rem; }
</style>
</head>
<body>
<nav>
	<a href="/">Home</a>
	<a href="/about">About</a>
	{{if .Email}}
	<a href="/dashboard">Dashboard</a>
	{{if .IsAdmin}}<a href="/admin">Admin</a>{{end}}
	{{else}}
	<a href="/login">Log in</a>
	<a href="/register">Register</a>
	{{end}}
</nav>
<h1>{{.Title}}</h1>
<p>{{.Body}}</p>
</body>
</html>
`))

type pageData struct {
	Title   string
	Body    string
	Email   string
	IsAdmin bool
}

type PagesHandler struct{}

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

func (h *PagesHandler) render(ctx *gin.Context, title, body string) {
	d := pageData{Title: title, Body: body}

	if s, ok := middlewares.SessionFromContext(ctx); ok {
		d.Email = s.Email
		d.IsAdmin = s.Role == user.RoleAdmin
	}

	ctx.Status(http.StatusOK)
	ctx.Header("Content-Type", "text/html; charset=utf-8")

	if err := pageTmpl.Execute(ctx.Writer, d); err != nil {
		_ = ctx.Error(err)
	}
}

func (h *PagesHandler) Home(ctx *gin.Context) {
	h.render(ctx, "Welcome", "Account management for teams: sign in, manage roles, audit everything.")
}

func (h *PagesHandler) About(ctx *gin.Context) {
	h.render(ctx, "About", "AuthHub handles registration, sessions and role-based access for your organization.")
}

func (h *PagesHandler) Login(ctx *gin.Context) {
	h.render(ctx, "Log in", "Sign in with your email and password.")
}

func (h *PagesHandler) Register(ctx *gin.Context) {
	h.render(ctx, "Register", "Create a new account.")
}

func (h *PagesHandler) ForgotPassword(ctx *gin.Context) {
	h.render(ctx, "Forgot password", "Enter your email and we will send you a reset link if an account exists.")
}

func (h *PagesHandler) ResetPassword(ctx *gin.Context) {
	h.render(ctx, "Reset password", "Choose a new password for your account.")
}

func (h *PagesHandler) Dashboard(ctx *gin.Context) {
	h.render(ctx, "Dashboard", "You are signed in.")
}

func (h *PagesHandler) Admin(ctx *gin.Context) {
	h.render(ctx, "Admin", "User directory and audit trail.")
}
