package property

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
	gifData = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
)

type kycStub map[int64]bool

func (k kycStub) IsApproved(sellerID int64) (bool, error) { return k[sellerID], nil }

type fixture struct {
	db    *sql.DB
	users *auth.UserStore
	repo  *Repository
	svc   *Service
	files *storage.Local
	kyc   kycStub
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

	repo := NewRepository(d)
	// Strictly increasing timestamps keep "newest first" deterministic.
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	f := &fixture{db: d, users: auth.NewUserStore(d), repo: repo, files: files, kyc: kycStub{}}
	f.svc = NewService(repo, f.kyc, files)
	return f
}

func (f *fixture) user(t *testing.T, username string, role auth.Role) *auth.User {
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

// approvedSeller registers a seller whose KYC is approved.
func (f *fixture) approvedSeller(t *testing.T, username string) *auth.User {
	t.Helper()
	u := f.user(t, username, auth.RoleSeller)
	f.kyc[u.ID] = true
	return u
}

func (f *fixture) listing(t *testing.T, sellerID int64, mutate func(*Input)) *Property {
	t.Helper()
	in := validInput()
	if mutate != nil {
		mutate(&in)
	}
	p, err := f.repo.Insert(sellerID, in)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return p
}

func validInput() Input {
	beds := int64(2)
	return Input{
		Title:       "Sea view flat",
		Description: "Two bedroom flat close to the station.",
		Price:       6500000,
		Type:        TypeFlat,
		State:       "maharashtra",
		City:        "Mumbai",
		Pincode:     "400001",
		Address:     "12 Marine Drive",
		Area:        950,
		Bedrooms:    &beds,
	}
}

func ptr(f float64) *float64 { return &f }

// imageHeader builds a multipart file header the way net/http would.
func imageHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() {
		if err := form.RemoveAll(); err != nil {
			t.Errorf("remove form: %v", err)
		}
	})
	return form.File["image"][0]
}

func ids(props []*Property) []int64 {
	out := make([]int64, len(props))
	for i, p := range props {
		out[i] = p.ID
	}
	return out
}

func sameIDs(got []*Property, want ...int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].ID != want[i] {
			return false
		}
	}
	return true
}
