package visit

import (
	"errors"
	"testing"

	"github.com/evcraddock/safe-estate/internal/auth"
)

func TestCreateRejectsSecondPending(t *testing.T) {
	f := newFixture(t)

	if _, err := f.repo.Create(f.listed.ID, f.buyer.ID, validInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	// The unique index holds even when the service check is bypassed.
	if _, err := f.repo.Create(f.listed.ID, f.buyer.ID, validInput()); !errors.Is(err, ErrDuplicatePending) {
		t.Errorf("err = %v, want ErrDuplicatePending", err)
	}
}

func TestRespondRepository(t *testing.T) {
	f := newFixture(t)
	v, err := f.repo.Create(f.listed.ID, f.buyer.ID, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.repo.Respond(v.ID, StatusPending, ""); err == nil {
		t.Error("expected error for pending response")
	}
	if _, err := f.repo.Respond(v.ID, "maybe", ""); err == nil {
		t.Error("expected error for unknown status")
	}

	got, err := f.repo.Respond(v.ID, StatusApproved, "See you then")
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got.Status != StatusApproved || got.RespondedAt == nil {
		t.Errorf("request = %+v", got)
	}

	if _, err := f.repo.Respond(v.ID, StatusDeclined, ""); !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("err = %v, want ErrAlreadyResponded", err)
	}
	if _, err := f.repo.Respond(9999, StatusDeclined, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListByBuyerNewestFirst(t *testing.T) {
	f := newFixture(t)
	second := f.listing(t, f.seller.ID)
	other := f.user(t, "buyer2", auth.RoleBuyer)

	a, err := f.repo.Create(f.listed.ID, f.buyer.ID, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.repo.Create(f.listed.ID, other.ID, validInput()); err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := f.repo.Create(second.ID, f.buyer.ID, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.repo.ListByBuyer(f.buyer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Errorf("got %+v, want [%d %d]", got, b.ID, a.ID)
	}

	forListing, err := f.repo.ListByProperty(f.listed.ID)
	if err != nil {
		t.Fatalf("list by property: %v", err)
	}
	if len(forListing) != 2 {
		t.Errorf("got %d requests for listing, want 2", len(forListing))
	}
}

func TestCountByStatus(t *testing.T) {
	f := newFixture(t)
	v, err := f.repo.Create(f.listed.ID, f.buyer.ID, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.repo.Respond(v.ID, StatusCompleted, ""); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if _, err := f.repo.Create(f.listed.ID, f.buyer.ID, validInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	counts, err := f.repo.CountByStatus()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	want := map[Status]int{StatusPending: 1, StatusApproved: 0, StatusDeclined: 0, StatusCompleted: 1}
	for s, n := range want {
		if counts[s] != n {
			t.Errorf("%s = %d, want %d", s, counts[s], n)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if StatusDeclined.Label() != "Declined" {
		t.Errorf("label = %q", StatusDeclined.Label())
	}
	if Status("other").IsValid() {
		t.Error("unknown status should be invalid")
	}
}
