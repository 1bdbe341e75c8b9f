package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/evcraddock/safe-estate/internal/admin"
	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/property"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		rupees   int64
		expected string
	}{
		{"zero", 0, "0"},
		{"small", 999, "999"},
		{"thousands", 25000, "25,000"},
		{"lakhs", 650000, "6,50,000"},
		{"crores", 12345678, "1,23,45,678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatPrice(tt.rupees)
			if result != tt.expected {
				t.Errorf("formatPrice(%d) = %q, want %q", tt.rupees, result, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world!", 8, "hello..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, result, tt.expected)
			}
		})
	}
}

func TestPrintUserTable(t *testing.T) {
	var buf bytes.Buffer
	if err := printUserTable(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No users found.") {
		t.Errorf("empty table = %q", buf.String())
	}

	buf.Reset()
	users := []*auth.User{{ID: 7, Username: "asha", Email: "asha@example.com", Role: auth.RoleSeller, IsActive: true}}
	if err := printUserTable(&buf, users); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"USERNAME", "asha", "seller", "yes"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestPrintImageTable(t *testing.T) {
	var buf bytes.Buffer
	props := []*property.Property{
		{ID: 1, Title: "Sea view flat", City: "Mumbai", Price: 6500000, Status: property.StatusAvailable, ImageCount: 2},
		{ID: 2, Title: "Plot near highway", City: "Pune", Price: 900000, Status: property.StatusSold},
	}
	if err := printImageTable(&buf, props); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"₹65,00,000", "none", "Sea view flat"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestPrintBulkResult(t *testing.T) {
	var buf bytes.Buffer
	printBulkResult(&buf, &admin.BulkResult{Message: "Successfully assigned unique images to 2 properties.", FailedCount: 1})
	if got := buf.String(); !strings.Contains(got, "2 properties") || !strings.Contains(got, "1 failed") {
		t.Errorf("output = %q", got)
	}
}
