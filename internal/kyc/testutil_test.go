package kyc

import (
	"bytes"
	"database/sql"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/db"
	"github.com/evcraddock/safe-estate/internal/storage"
)

var (
	pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfData = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
)

type upload struct {
	field, filename, contentType string
	data                         []byte
}

// fileHeaders builds multipart file headers the way net/http would.
func fileHeaders(t *testing.T, uploads ...upload) map[string]*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, u := range uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, u.field, u.filename))
		h.Set("Content-Type", u.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(u.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() {
		if err := form.RemoveAll(); err != nil {
			t.Errorf("remove form: %v", err)
		}
	})

	out := map[string]*multipart.FileHeader{}
	for field, fhs := range form.File {
		out[field] = fhs[0]
	}
	return out
}

func requiredUploads() []upload {
	var ups []upload
	for _, d := range Documents {
		if d.Required {
			ups = append(ups, upload{d.Field, d.Field + ".pdf", "application/pdf", pdfData})
		}
	}
	return ups
}

type fixture struct {
	db     *sql.DB
	users  *auth.UserStore
	repo   *Repository
	svc    *Service
	files  *storage.Local
	seller *auth.User
	buyer  *auth.User
	admin  *auth.User
}

func newFixture(t *testing.T) *fixture {
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

	files, err := storage.NewLocal(filepath.Join(t.TempDir(), "media"))
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	f := &fixture{db: d, users: auth.NewUserStore(d), repo: NewRepository(d), files: files}
	f.svc = NewService(f.repo, files)
	f.seller = f.addUser(t, "seller1", auth.RoleSeller)
	f.buyer = f.addUser(t, "buyer1", auth.RoleBuyer)

	admin, err := f.users.CreateAdmin("root", "root@example.com", "Str0ng-Admin-Pass")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	f.admin = admin
	return f
}

func (f *fixture) addUser(t *testing.T, username string, role auth.Role) *auth.User {
	t.Helper()
	u, err := f.users.Register(auth.Registration{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "Tr1cky-Horse-42",
		Password2: "Tr1cky-Horse-42",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func (f *fixture) backdate(t *testing.T, kycID int64, age time.Duration) {
	t.Helper()
	if _, err := f.db.Exec("UPDATE kyc SET submitted_at = ? WHERE id = ?", time.Now().UTC().Add(-age), kycID); err != nil {
		t.Fatalf("backdate: %v", err)
	}
}
