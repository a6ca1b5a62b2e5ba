package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"

	"library-circulation/library"
)

const defaultWidth = 120

// termWidth reports the width of w when it is a terminal.
func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 60 {
		return defaultWidth
	}
	return width
}

func printItems(w io.Writer, items []library.ItemInfo) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items in catalog.")
		return
	}
	width := termWidth(w)
	// Fixed columns take 70 characters; the title gets the rest.
	titleW := max(20, min(50, width-70))

	fmt.Fprintf(w, "%-5s %-5s %-*s %-20s %-12s %-6s %-10s %s\n",
		"ID", "Type", titleW, "Title", "Author/Artist", "Status", "Loans", "Due", "Queue")
	fmt.Fprintln(w, strings.Repeat("-", min(width, titleW+75)))
	for _, it := range items {
		due := "-"
		if it.DueDate != nil {
			due = it.DueDate.Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%-5d %-5s %-*s %-20s %-12s %-6d %-10s %d\n",
			it.ID, it.Type, titleW, truncateString(it.Title, titleW),
			truncateString(it.Attribution, 20), it.Status, it.CheckoutCount, due, it.ReservationCount)
	}
}

func printPatrons(w io.Writer, patrons []library.PatronInfo) {
	if len(patrons) == 0 {
		fmt.Fprintln(w, "No patrons registered.")
		return
	}
	fmt.Fprintf(w, "%-5s %-25s %-30s %-10s %-8s %-8s %s\n", "ID", "Name", "Email", "Tier", "Loans", "Fines", "Unread")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, p := range patrons {
		fmt.Fprintf(w, "%-5d %-25s %-30s %-10s %-8s %-8s %d\n",
			p.ID, truncateString(p.Name, 25), truncateString(p.Email, 30), p.MembershipLevel,
			fmt.Sprintf("%d/%d", len(p.CheckedOut), p.MaxCheckouts), money(p.Fines), p.Unread)
	}
}

func printNotifications(w io.Writer, notes []library.Notification) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}
	for _, n := range notes {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		fmt.Fprintf(w, "%s #%-3d %s [%s] %s\n", mark, n.ID, n.Timestamp.Format(time.DateTime), n.Kind, n.Message)
	}
}

func printJSON(w io.Writer, v any) error {
	buf, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(buf))
	return err
}

func money(v float64) string { return "$" + strconv.FormatFloat(v, 'f', 2, 64) }

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
