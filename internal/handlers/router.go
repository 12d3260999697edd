package handlers

import (
	"net/http"

	"cloud-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Routes struct {
	Sessions *middleware.SessionAuth
	CSRF     *middleware.CSRF
	Auth     *AuthHandler
	Users    *UserHandler
	Files    *FileHandler
	Health   *HealthHandler
}

func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)
	r.Use(rt.Sessions.Authenticate)
	r.Use(rt.CSRF.RequireCSRF)

	r.Get("/healthz", rt.Health.Check)
	r.Get("/csrf", rt.Auth.GetCSRFToken)
	r.Post("/login", rt.Auth.LoginUser)
	r.Post("/users", rt.Auth.RegisterUser)
	r.Get("/files/link", rt.Files.LinkLanding)
	r.Get("/files/link/{key}", rt.Files.DownloadByLink)

	r.Group(func(r chi.Router) {
		r.Use(rt.Sessions.RequireAuth)

		r.Get("/logout", rt.Auth.LogoutUser)
		r.Get("/session", rt.Auth.GetSession)
		r.Get("/users/{id}/files", rt.Users.GetUser)

		r.Post("/files", rt.Files.UploadFile)
		r.Get("/files/{id}", rt.Files.GetFile)
		r.Put("/files/{id}", rt.Files.UpdateFile)
		r.Patch("/files/{id}", rt.Files.UpdateFile)
		r.Delete("/files/{id}", rt.Files.DeleteFile)
		r.Get("/files/{id}/download", rt.Files.DownloadFile)
		r.Get("/files/{id}/link", rt.Files.GenerateLink)
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.Sessions.RequireAdmin)

		r.Get("/users", rt.Users.ListUsers)
		r.Get("/users/{id}", rt.Users.GetUser)
		r.Put("/users/{id}", rt.Users.UpdateUser)
		r.Patch("/users/{id}", rt.Users.UpdateUser)
		r.Delete("/users/{id}", rt.Users.DeleteUser)
	})

	return r
}
