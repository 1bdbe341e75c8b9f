package visit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/db"
	"github.com/evcraddock/safe-estate/internal/property"
)

// now is the fixed service clock in tests.
var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	users  *auth.UserStore
	props  *property.Repository
	repo   *Repository
	svc    *Service
	seller *auth.User
	buyer  *auth.User
	listed *property.Property
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

	f := &fixture{users: auth.NewUserStore(d), props: property.NewRepository(d), repo: NewRepository(d)}
	clock := now
	f.repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	f.svc = NewService(f.repo, f.props)
	f.svc.now = func() time.Time { return now }
	f.svc.loc = time.UTC

	f.seller = f.user(t, "seller1", auth.RoleSeller)
	f.buyer = f.user(t, "buyer1", auth.RoleBuyer)
	f.listed = f.listing(t, f.seller.ID)
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

func (f *fixture) listing(t *testing.T, sellerID int64) *property.Property {
	t.Helper()
	p, err := f.props.Insert(sellerID, property.Input{
		Title:       "Garden house",
		Description: "Three bedroom house",
		Price:       8500000,
		Type:        property.TypeHouse,
		State:       "kerala",
		City:        "Kochi",
		Pincode:     "682001",
		Address:     "5 Lake Road",
		Area:        1800,
	})
	if err != nil {
		t.Fatalf("insert property: %v", err)
	}
	return p
}

func validInput() Input {
	return Input{
		PreferredDate: "2026-03-15",
		PreferredTime: "10:30",
		Phone:         "+919876543210",
		Message:       "Weekend morning works best.",
	}
}
