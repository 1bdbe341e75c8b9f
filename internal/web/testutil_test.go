package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/config"
	"github.com/evcraddock/safe-estate/internal/db"
	"github.com/evcraddock/safe-estate/internal/imagefetch"
	"github.com/evcraddock/safe-estate/internal/kyc"
	"github.com/evcraddock/safe-estate/internal/notify"
	"github.com/evcraddock/safe-estate/internal/property"
)

const testPassword = "Tr1cky-Horse-42"

var (
	pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfData = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
)

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) (*imagefetch.Image, error) {
	return &imagefetch.Image{Data: pngData, Ext: ".png"}, nil
}

type testEnv struct {
	srv    *Server
	sender *notify.Recorder
	admin  *auth.User
	// adminCookie is the session cookie of admin.
	adminCookie *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080, BaseURL: "http://localhost:8080"},
		Media:  config.MediaConfig{Root: filepath.Join(t.TempDir(), "media")},
		Images: config.ImagesConfig{Timeout: time.Second},
	}
	sender := &notify.Recorder{}
	srv, err := NewServer(d, cfg, WithSender(sender), WithFetcher(stubFetcher{}))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	env := &testEnv{srv: srv, sender: sender}
	env.admin, err = srv.users.CreateAdmin("root", "root@example.com", "Str0ng-Admin-Pass")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	env.adminCookie = env.login(t, "root", "Str0ng-Admin-Pass")
	return env
}

// user registers an account and returns it with a session cookie.
func (e *testEnv) user(t *testing.T, username string, role auth.Role) (*auth.User, *http.Cookie) {
	t.Helper()
	u, err := e.srv.users.Register(auth.Registration{
		Username:  username,
		Email:     username + "@example.com",
		Password:  testPassword,
		Password2: testPassword,
		Role:      role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u, e.login(t, username, testPassword)
}

// approvedSeller registers a seller whose KYC an admin has approved.
func (e *testEnv) approvedSeller(t *testing.T, username string) (*auth.User, *http.Cookie) {
	t.Helper()
	u, c := e.user(t, username, auth.RoleSeller)
	docs := map[string]string{}
	for _, d := range kyc.Documents {
		if d.Required {
			docs[d.Field] = d.Dir + "/" + d.Field + ".pdf"
		}
	}
	repo := e.srv.kyc.Repository()
	k, err := repo.SaveSubmission(u.ID, docs)
	if err != nil {
		t.Fatalf("save kyc: %v", err)
	}
	if _, err := repo.Decide(k.ID, e.admin.ID, kyc.StatusApproved, ""); err != nil {
		t.Fatalf("approve kyc: %v", err)
	}
	return u, c
}

func (e *testEnv) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	w := e.do(t, "POST", "/api/login", nil, map[string]string{"username": username, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "se_session" {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

// listing inserts an available listing for sellerID.
func (e *testEnv) listing(t *testing.T, sellerID int64, mutate func(*property.Input)) *property.Property {
	t.Helper()
	in := listingInput()
	if mutate != nil {
		mutate(&in)
	}
	p, err := e.srv.properties.Repository().Insert(sellerID, in)
	if err != nil {
		t.Fatalf("insert property: %v", err)
	}
	return p
}

func listingInput() property.Input {
	return property.Input{
		Title:       "Sea view flat",
		Description: "Two bedroom flat close to the station.",
		Price:       6500000,
		Type:        property.TypeFlat,
		State:       "maharashtra",
		City:        "Mumbai",
		Pincode:     "400001",
		Address:     "12 Marine Drive",
		Area:        950,
	}
}

// do sends a JSON request, optionally with a session cookie.
func (e *testEnv) do(t *testing.T, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	r := httptest.NewRequest(method, path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, r)
	return w
}

type filePart struct {
	field, filename, contentType string
	data                         []byte
}

// multipart sends a multipart/form-data request.
func (e *testEnv) multipart(t *testing.T, method, path string, cookie *http.Cookie, fields map[string]string, files ...filePart) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("status = %d, want %d: %s", w.Code, code, w.Body.String())
	}
}

type errorBody struct {
	Error    string              `json:"error"`
	Redirect string              `json:"redirect"`
	Fields   map[string][]string `json:"fields"`
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var b errorBody
	decode(t, w, &b)
	return b
}
