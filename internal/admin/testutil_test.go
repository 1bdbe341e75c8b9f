package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"sync"
	"testing"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/db"
	"github.com/evcraddock/safe-estate/internal/imagefetch"
	"github.com/evcraddock/safe-estate/internal/kyc"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/storage"
	"github.com/evcraddock/safe-estate/internal/visit"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// fakeFetcher serves pngData for every URL except those in fail.
type fakeFetcher struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*imagefetch.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if f.fail[url] {
		return nil, errors.New("connection refused")
	}
	return &imagefetch.Image{Data: pngData, Ext: ".png"}, nil
}

type fixture struct {
	users  *auth.UserStore
	props  *property.Repository
	kyc    *kyc.Repository
	visits *visit.Repository
	files  *storage.Local
	fetch  *fakeFetcher
	svc    *Service
	seller *auth.User
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

	f := &fixture{
		users:  auth.NewUserStore(d),
		props:  property.NewRepository(d),
		kyc:    kyc.NewRepository(d),
		visits: visit.NewRepository(d),
		files:  files,
		fetch:  &fakeFetcher{fail: map[string]bool{}},
	}
	f.svc = NewService(f.users, f.props, f.kyc, f.visits, f.files, f.fetch)
	f.seller = f.user(t, "seller1", auth.RoleSeller)
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

func (f *fixture) listing(t *testing.T, title string) *property.Property {
	t.Helper()
	p, err := f.props.Insert(f.seller.ID, property.Input{
		Title:       title,
		Description: "Listing used in admin tests",
		Price:       4200000,
		Type:        property.TypeFlat,
		State:       "karnataka",
		City:        "Bengaluru",
		Pincode:     "560001",
		Address:     "7 MG Road",
		Area:        800,
	})
	if err != nil {
		t.Fatalf("insert property: %v", err)
	}
	return p
}

// image stores a file and attaches it to propertyID.
func (f *fixture) image(t *testing.T, propertyID int64) *property.Image {
	t.Helper()
	rel, err := f.files.Save(storage.DirProperties, "photo.png", bytes.NewReader(pngData))
	if err != nil {
		t.Fatalf("save file: %v", err)
	}
	img, err := f.props.AppendImage(propertyID, rel, "")
	if err != nil {
		t.Fatalf("append image: %v", err)
	}
	return img
}

func (f *fixture) images(t *testing.T, propertyID int64) []*property.Image {
	t.Helper()
	imgs, err := f.props.Images(propertyID)
	if err != nil {
		t.Fatalf("images: %v", err)
	}
	return imgs
}

func (f *fixture) fileExists(t *testing.T, rel string) bool {
	t.Helper()
	file, err := f.files.Open(rel)
	if err != nil {
		return false
	}
	if err := file.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	return true
}

type upload struct {
	filename, contentType string
	data                  []byte
}

// imageHeaders builds the "images" file headers of a multipart form.
func imageHeaders(t *testing.T, uploads ...upload) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, u := range uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, u.filename))
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

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() {
		if err := form.RemoveAll(); err != nil {
			t.Errorf("remove form: %v", err)
		}
	})
	return form.File["images"]
}
