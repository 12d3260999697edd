package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"cloud-backend/internal/middleware"
	"cloud-backend/internal/services"
	"cloud-backend/internal/services/servicetest"
	"cloud-backend/internal/storage"

	"github.com/gorilla/sessions"
)

const (
	adminUsername = "root"
	adminPassword = "root-password"
)

type testServer struct {
	*httptest.Server
	store *servicetest.MemoryStore
}

func newTestServer(t *testing.T, maxUploadBytes int64) *testServer {
	t.Helper()

	blobs := storage.NewLocalStorage(t.TempDir())
	if err := blobs.Init(); err != nil {
		t.Fatalf("failed to init storage: %v", err)
	}
	store := servicetest.NewMemoryStore()

	authService := services.NewAuthService(store)
	if err := authService.EnsureAdmin(context.Background(), adminUsername, "root@x.com", adminPassword); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	userService := services.NewUserService(store, store, blobs)
	fileService := services.NewFileService(store, store, blobs, services.NewLinkKeyGenerator(store, nil))

	sessionStore := sessions.NewFilesystemStore(t.TempDir(), []byte("test-session-secret-0123456789ab"))
	sessionStore.Options.HttpOnly = true
	sessionAuth := middleware.NewSessionAuth(sessionStore, authService)
	csrf := middleware.NewCSRF("test-csrf-secret", false)

	router := NewRouter(Routes{
		Sessions: sessionAuth,
		CSRF:     csrf,
		Auth:     NewAuthHandler(authService, sessionAuth, csrf),
		Users:    NewUserHandler(userService),
		Files:    NewFileHandler(fileService, maxUploadBytes, "/download"),
		Health:   NewHealthHandler(store),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store}
}

// apiClient is one browser: it keeps cookies and the current CSRF token.
type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
	csrf string
}

func (s *testServer) client(t *testing.T) *apiClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &apiClient{
		t:    t,
		base: s.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *apiClient) do(method, path string, body io.Reader, contentType string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.csrf != "" {
		req.Header.Set(middleware.CSRFHeaderName, c.csrf)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *apiClient) json(method, path string, payload interface{}) *http.Response {
	c.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("failed to encode payload: %v", err)
		}
		body = bytes.NewReader(b)
	}
	return c.do(method, path, body, "application/json")
}

func (c *apiClient) register(username string) {
	c.t.Helper()
	resp := c.json(http.MethodPost, "/users", map[string]string{
		"username": username,
		"email":    username + "@x.com",
		"password": "pw-" + username,
	})
	expectStatus(c.t, resp, http.StatusCreated)
}

// login authenticates and fetches a CSRF token for later unsafe requests.
func (c *apiClient) login(username, password string) sessionBody {
	c.t.Helper()
	resp := c.json(http.MethodPost, "/login", map[string]string{"username": username, "password": password})
	expectStatus(c.t, resp, http.StatusOK)
	var session sessionBody
	decodeData(c.t, resp, &session)
	c.fetchCSRF()
	return session
}

func (c *apiClient) fetchCSRF() {
	c.t.Helper()
	resp := c.do(http.MethodGet, "/csrf", nil, "")
	expectStatus(c.t, resp, http.StatusOK)
	var body struct {
		CSRF string `json:"csrf"`
	}
	decodeData(c.t, resp, &body)
	c.csrf = body.CSRF
}

func (c *apiClient) upload(name string, content []byte, fields map[string]string) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			c.t.Fatalf("failed to write field: %v", err)
		}
	}
	part, err := mw.CreateFormFile("content", name)
	if err != nil {
		c.t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(content)
	mw.Close()
	return c.do(http.MethodPost, "/files", &buf, mw.FormDataContentType())
}

type sessionBody struct {
	Detail   string `json:"detail"`
	UserID   string `json:"userID"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type fileBody struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	Filename        string  `json:"filename"`
	Size            int64   `json:"size"`
	SHA256          string  `json:"sha256"`
	Comment         string  `json:"comment"`
	LastDownload    *string `json:"last_download"`
	ExternalLinkKey string  `json:"external_link_key"`
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func decodeData(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

type errorBody struct {
	Error  string              `json:"error"`
	Code   int                 `json:"code"`
	Fields map[string][]string `json:"fields"`
}
