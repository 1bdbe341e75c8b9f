package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/safe-estate/internal/admin"
	"github.com/evcraddock/safe-estate/internal/auth"
	"github.com/evcraddock/safe-estate/internal/property"
)

// printJSON marshals v as indented JSON and writes it to out.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printUserTable prints accounts as a formatted table.
func printUserTable(out io.Writer, users []*auth.User) error {
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tVERIFIED\tACTIVE\tJOINED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t--------\t-----\t----\t--------\t------\t------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, u := range users {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Username, truncate(u.Email, 30), u.Role,
			yesNo(u.IsVerified), yesNo(u.IsActive), u.CreatedAt.Format("2006-01-02")); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	return nil
}

// printImageTable prints listings with their image counts.
func printImageTable(out io.Writer, props []*property.Property) error {
	if len(props) == 0 {
		fmt.Fprintln(out, "No properties found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tTITLE\tCITY\tPRICE\tSTATUS\tIMAGES"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t-----\t----\t-----\t------\t------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, p := range props {
		images := fmt.Sprintf("%d", p.ImageCount)
		if p.ImageCount == 0 {
			images = "none"
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t₹%s\t%s\t%s\n",
			p.ID, truncate(p.Title, 35), p.City, formatPrice(int64(p.Price)), p.Status, images); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	return nil
}

func printImageStats(out io.Writer, s property.ImageStats) {
	fmt.Fprintf(out, "\nProperties: %d (%d with images, %d without)\n", s.TotalProperties, s.WithImages, s.WithoutImages)
	fmt.Fprintf(out, "Images:     %d\n", s.TotalImages)
}

func printBulkResult(out io.Writer, res *admin.BulkResult) {
	fmt.Fprintln(out, res.Message)
	if res.FailedCount > 0 {
		fmt.Fprintf(out, "  %d failed\n", res.FailedCount)
	}
}

// formatPrice formats a rupee amount with Indian digit grouping
// (12,34,567).
func formatPrice(rupees int64) string {
	s := fmt.Sprintf("%d", rupees)
	if len(s) <= 3 {
		return s
	}

	head, tail := s[:len(s)-3], s[len(s)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	parts = append([]string{head}, parts...)

	return strings.Join(parts, ",") + "," + tail
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
