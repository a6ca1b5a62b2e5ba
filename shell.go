package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/library"
)

func (a *app) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive circulation desk",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			s := &shell{app: a, sc: bufio.NewScanner(cmd.InOrStdin()), out: cmd.OutOrStdout()}
			s.run(cmd.Context())
		},
	}
}

type shell struct {
	*app
	sc  *bufio.Scanner
	out io.Writer
}

func (s *shell) run(ctx context.Context) {
	fmt.Fprintln(s.out, "Welcome to the Library Circulation Desk!")
	fmt.Fprintln(s.out, "Available commands:")
	fmt.Fprintln(s.out, "  Items: add item, list items, search, remove item")
	fmt.Fprintln(s.out, "  Patrons: add patron, list patrons, notifications")
	fmt.Fprintln(s.out, "  Circulation: checkout, return, reserve, cancel reservation")
	fmt.Fprintln(s.out, "  Reports: report")
	fmt.Fprintln(s.out, "  System: exit")

	for {
		fmt.Fprint(s.out, "\n> ")
		if !s.sc.Scan() {
			return
		}
		switch strings.TrimSpace(s.sc.Text()) {
		case "add item":
			s.addItem(ctx)
		case "list items":
			printItems(s.out, s.lm.ListItems())
		case "search":
			s.search()
		case "remove item":
			s.removeItem(ctx)
		case "add patron":
			s.addPatron(ctx)
		case "list patrons":
			printPatrons(s.out, s.lm.ListPatrons())
		case "notifications":
			s.notifications(ctx)
		case "checkout":
			s.checkout(ctx)
		case "return":
			s.checkin(ctx)
		case "reserve":
			s.reserve(ctx)
		case "cancel reservation":
			s.cancelReservation(ctx)
		case "report":
			s.report()
		case "exit":
			fmt.Fprintln(s.out, "Goodbye!")
			return
		case "":
		default:
			fmt.Fprintln(s.out, "Unknown command. Type one of the available commands listed above.")
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *shell) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.sc.Text()), true
}

func (s *shell) promptID(what, label string) (int64, bool) {
	text, ok := s.prompt(label)
	if !ok {
		return 0, false
	}
	id, err := parseID(what, text)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return 0, false
	}
	return id, true
}

func (s *shell) addItem(ctx context.Context) {
	var f itemFlags
	var ok bool
	if f.kind, ok = s.prompt("Type (Book/DVD/CD): "); !ok {
		return
	}
	if f.title, ok = s.prompt("Title: "); !ok {
		return
	}
	var creator string
	switch library.Kind(f.kind) {
	case library.KindDVD:
		creator, ok = s.prompt("Director: ")
		f.director = creator
	case library.KindCD:
		creator, ok = s.prompt("Artist: ")
		f.artist = creator
	default:
		creator, ok = s.prompt("Author: ")
		f.author = creator
	}
	if !ok {
		return
	}
	media, err := f.media()
	if err != nil {
		fmt.Fprintf(s.out, "Error adding item: %v\n", err)
		return
	}
	item, err := s.lm.AddItem(ctx, f.title, "", media)
	if err != nil {
		fmt.Fprintf(s.out, "Error adding item: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Added item ID %d.\n", item.ID())
}

func (s *shell) search() {
	term, ok := s.prompt("Search term: ")
	if !ok {
		return
	}
	printItems(s.out, s.lm.Search(term, library.SearchAny))
}

func (s *shell) removeItem(ctx context.Context) {
	id, ok := s.promptID("item", "Item ID: ")
	if !ok {
		return
	}
	if err := s.lm.RemoveItem(ctx, id); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Item removed.")
}

func (s *shell) addPatron(ctx context.Context) {
	name, ok := s.prompt("Name: ")
	if !ok {
		return
	}
	email, ok := s.prompt("Email: ")
	if !ok {
		return
	}
	tier, ok := s.prompt("Membership level (Standard/Premium/Student/Faculty): ")
	if !ok {
		return
	}
	if tier == "" {
		tier = string(library.TierStandard)
	}
	p, err := s.lm.RegisterPatron(ctx, name, email, library.Tier(tier))
	if err != nil {
		fmt.Fprintf(s.out, "Error adding patron: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Added patron ID %d.\n", p.ID())
}

func (s *shell) notifications(ctx context.Context) {
	id, ok := s.promptID("patron", "Patron ID: ")
	if !ok {
		return
	}
	notes, err := s.lm.Notifications(id, false)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	printNotifications(s.out, notes)
	for _, n := range notes {
		if !n.Read {
			if err := s.lm.MarkNotificationRead(ctx, id, n.ID); err != nil {
				fmt.Fprintf(s.out, "Error: %v\n", err)
				return
			}
		}
	}
}

func (s *shell) checkout(ctx context.Context) {
	patronID, ok := s.promptID("patron", "Patron ID: ")
	if !ok {
		return
	}
	itemID, ok := s.promptID("item", "Item ID: ")
	if !ok {
		return
	}
	entry, err := s.lm.Checkout(ctx, patronID, itemID)
	if err != nil {
		fmt.Fprintf(s.out, "Checkout failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Checked out. Due %s.\n", entry.DueDate.Format("2006-01-02"))
}

func (s *shell) checkin(ctx context.Context) {
	itemID, ok := s.promptID("item", "Item ID: ")
	if !ok {
		return
	}
	condition, ok := s.prompt("Condition (Good): ")
	if !ok {
		return
	}
	if condition == "" {
		condition = "Good"
	}
	res, err := s.lm.Checkin(ctx, itemID, condition)
	if err != nil {
		fmt.Fprintf(s.out, "Return failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Returned.")
	if res.Fine > 0 {
		fmt.Fprintf(s.out, "Overdue by %d day(s). Fine: %s\n", res.DaysOverdue, money(res.Fine))
	}
	if res.NextPatron != 0 {
		fmt.Fprintf(s.out, "Patron %d has been notified that the item is ready.\n", res.NextPatron)
	}
}

func (s *shell) reserve(ctx context.Context) {
	itemID, ok := s.promptID("item", "Item ID: ")
	if !ok {
		return
	}
	patronID, ok := s.promptID("patron", "Patron ID: ")
	if !ok {
		return
	}
	added, err := s.lm.Reserve(ctx, itemID, patronID)
	switch {
	case err != nil:
		fmt.Fprintf(s.out, "Reservation failed: %v\n", err)
	case !added:
		fmt.Fprintln(s.out, "Already reserved.")
	default:
		fmt.Fprintln(s.out, "Reserved.")
	}
}

func (s *shell) cancelReservation(ctx context.Context) {
	itemID, ok := s.promptID("item", "Item ID: ")
	if !ok {
		return
	}
	patronID, ok := s.promptID("patron", "Patron ID: ")
	if !ok {
		return
	}
	if err := s.lm.CancelReservation(ctx, itemID, patronID); err != nil {
		fmt.Fprintf(s.out, "Cancel failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Reservation cancelled.")
}

func (s *shell) report() {
	name, ok := s.prompt("Report (inventory/popular_items/overdue_items): ")
	if !ok {
		return
	}
	var rep any
	switch name {
	case library.ReportInventory:
		rep = s.lm.InventoryReport()
	case library.ReportPopularItems:
		rep = s.lm.PopularItemsReport(s.cfg.Reports.PopularLimit)
	case library.ReportOverdueItems:
		rep = s.lm.OverdueItemsReport()
	default:
		fmt.Fprintln(s.out, "Unknown report.")
		return
	}
	if err := printJSON(s.out, rep); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}
