package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/library"
	"library-circulation/notify"
)

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, s)
	}
	return id, nil
}

// ------------------ items ------------------

type itemFlags struct {
	kind, title, category      string
	author, isbn, publisher    string
	director, rating, artist   string
	runtime, tracks, pageCount int
}

func (f itemFlags) media() (library.Media, error) {
	kind, err := library.ParseKind(f.kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case library.KindDVD:
		m := library.NewDVD(f.director, f.runtime)
		if f.rating != "" {
			m.Rating = f.rating
		}
		return m, nil
	case library.KindCD:
		return library.NewCD(f.artist, f.tracks), nil
	default:
		m := library.NewBook(f.author, f.isbn)
		m.Publisher, m.PageCount = f.publisher, f.pageCount
		return m, nil
	}
}

func (a *app) itemsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "items", Short: "Manage catalog items"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every item",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printItems(cmd.OutOrStdout(), a.lm.ListItems())
		},
	}

	var f itemFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book, DVD or CD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			media, err := f.media()
			if err != nil {
				return err
			}
			item, err := a.lm.AddItem(cmd.Context(), f.title, f.category, media)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (ID: %d)\n", item.DisplayInfo(), item.ID())
			return nil
		},
	}
	add.Flags().StringVar(&f.kind, "type", string(library.KindBook), "Book, DVD or CD")
	add.Flags().StringVar(&f.title, "title", "", "title")
	add.Flags().StringVar(&f.category, "category", "", "category (defaults by type)")
	add.Flags().StringVar(&f.author, "author", "", "book author")
	add.Flags().StringVar(&f.isbn, "isbn", "", "book ISBN")
	add.Flags().StringVar(&f.publisher, "publisher", "", "book publisher")
	add.Flags().IntVar(&f.pageCount, "pages", 0, "book page count")
	add.Flags().StringVar(&f.director, "director", "", "DVD director")
	add.Flags().IntVar(&f.runtime, "runtime", 0, "DVD runtime in minutes")
	add.Flags().StringVar(&f.rating, "rating", "", "DVD rating")
	add.Flags().StringVar(&f.artist, "artist", "", "CD artist")
	add.Flags().IntVar(&f.tracks, "tracks", 0, "CD track count")
	_ = add.MarkFlagRequired("title")

	var by string
	search := &cobra.Command{
		Use:   "search TERM",
		Short: "Case-insensitive search by title, author or category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, ok := library.ParseSearchBy(by)
			if !ok {
				return fmt.Errorf("unknown search field %q", by)
			}
			printItems(cmd.OutOrStdout(), a.lm.Search(strings.Join(args, " "), field))
			return nil
		},
	}
	search.Flags().StringVar(&by, "by", "any", "any, title, author or category")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item", args[0])
			if err != nil {
				return err
			}
			item, ok := a.lm.Catalog().Item(id)
			if !ok {
				return fmt.Errorf("%w: %d", library.ErrItemNotFound, id)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, item.DisplayInfo())
			printItems(out, []library.ItemInfo{item.Info()})
			if hist := item.History(); len(hist) > 0 {
				fmt.Fprintln(out, "\nCheckout history:")
				for _, h := range hist {
					returned := "on loan"
					if !h.ReturnDate.IsZero() {
						returned = "returned " + h.ReturnDate.Format("2006-01-02") + " (" + h.Condition + ")"
					}
					fmt.Fprintf(out, "  %s patron %d, out %s, due %s, %s\n", h.LoanID, h.PatronID,
						h.CheckoutDate.Format("2006-01-02"), h.DueDate.Format("2006-01-02"), returned)
				}
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Remove an item that is not on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item", args[0])
			if err != nil {
				return err
			}
			if err := a.lm.RemoveItem(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %d removed\n", id)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Set a shelf status: Available, Reserved, Damaged or Lost",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("item", args[0])
			if err != nil {
				return err
			}
			st, ok := library.ParseStatus(strings.Join(args[1:], " "))
			if !ok {
				return fmt.Errorf("%w: %q", library.ErrInvalidStatus, strings.Join(args[1:], " "))
			}
			if err := a.lm.SetItemStatus(cmd.Context(), id, st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %d is now %s\n", id, st)
			return nil
		},
	}

	cmd.AddCommand(list, add, search, show, remove, status)
	return cmd
}

// ------------------ patrons & staff ------------------

func (a *app) patronsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "patrons", Short: "Manage patrons"}

	list := &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printPatrons(cmd.OutOrStdout(), a.lm.ListPatrons())
		},
	}

	var email, tier string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a patron",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.lm.RegisterPatron(cmd.Context(), strings.Join(args, " "), email, library.Tier(tier))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s registered, may hold %d items\n", p.DisplayInfo(), p.MaxCheckouts())
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "contact email")
	add.Flags().StringVar(&tier, "tier", string(library.TierStandard), "Standard, Premium, Student or Faculty")

	show := &cobra.Command{
		Use:  "show ID",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patron", args[0])
			if err != nil {
				return err
			}
			info, err := a.lm.GetPatron(id)
			if err != nil {
				return err
			}
			printPatrons(cmd.OutOrStdout(), []library.PatronInfo{info})
			return nil
		},
	}

	cmd.AddCommand(list, add, show)
	return cmd
}

func (a *app) librariansCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "librarians", Short: "Manage staff"}

	list := &cobra.Command{
		Use:  "list",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, l := range a.lm.Catalog().Librarians() {
				fmt.Fprintln(cmd.OutOrStdout(), l.DisplayInfo())
			}
		},
	}

	var email, department string
	add := &cobra.Command{
		Use:  "add NAME",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.lm.AddLibrarian(cmd.Context(), strings.Join(args, " "), email, department)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", l.DisplayInfo())
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "contact email")
	add.Flags().StringVar(&department, "department", "Circulation", "department")

	cmd.AddCommand(list, add)
	return cmd
}

// ------------------ circulation ------------------

func (a *app) checkoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout PATRON_ID ITEM_ID",
		Short: "Lend an item to a patron",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patronID, err := parseID("patron", args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID("item", args[1])
			if err != nil {
				return err
			}
			entry, err := a.lm.Checkout(cmd.Context(), patronID, itemID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %d checked out to patron %d, due %s (loan %s)\n",
				itemID, patronID, entry.DueDate.Format("2006-01-02"), entry.LoanID)
			return nil
		},
	}
}

func (a *app) checkinCmd() *cobra.Command {
	var condition string
	cmd := &cobra.Command{
		Use:   "checkin ITEM_ID",
		Short: "Return an item and apply any overdue fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item", args[0])
			if err != nil {
				return err
			}
			res, err := a.lm.Checkin(cmd.Context(), itemID, condition)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Item %d returned\n", itemID)
			if res.Fine > 0 {
				fmt.Fprintf(out, "%d day(s) late, fine %s charged to patron %d\n", res.DaysOverdue, money(res.Fine), res.PatronID)
			}
			if res.NextPatron != 0 {
				fmt.Fprintf(out, "Patron %d is next in the reservation queue and has been notified\n", res.NextPatron)
			} else {
				fmt.Fprintln(out, "Item is now available for checkout")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&condition, "condition", "Good", "condition on return")
	return cmd
}

func (a *app) reserveCmd() *cobra.Command {
	var cancel bool
	cmd := &cobra.Command{
		Use:   "reserve ITEM_ID PATRON_ID",
		Short: "Queue a patron for an item (or leave the queue with --cancel)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item", args[0])
			if err != nil {
				return err
			}
			patronID, err := parseID("patron", args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cancel {
				if err := a.lm.CancelReservation(cmd.Context(), itemID, patronID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Reservation of patron %d on item %d cancelled\n", patronID, itemID)
				return nil
			}
			added, err := a.lm.Reserve(cmd.Context(), itemID, patronID)
			if err != nil {
				return err
			}
			queue, _ := a.lm.Reservations(itemID)
			if !added {
				fmt.Fprintf(out, "Patron %d is already queued for item %d\n", patronID, itemID)
			} else {
				fmt.Fprintf(out, "Item %d reserved for patron %d\n", itemID, patronID)
			}
			for i, id := range queue {
				if id == patronID {
					fmt.Fprintf(out, "Position in queue: %d\n", i+1)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cancel, "cancel", false, "remove the patron from the queue")
	return cmd
}

// ------------------ reports & documents ------------------

func (a *app) reportCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:       "report inventory|popular_items|overdue_items",
		Short:     "Print a librarian report as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{library.ReportInventory, library.ReportPopularItems, library.ReportOverdueItems},
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = a.cfg.Reports.PopularLimit
			}
			var rep any
			switch args[0] {
			case library.ReportInventory:
				rep = a.lm.InventoryReport()
			case library.ReportPopularItems:
				rep = a.lm.PopularItemsReport(limit)
			case library.ReportOverdueItems:
				rep = a.lm.OverdueItemsReport()
			default:
				return fmt.Errorf("unknown report %q", args[0])
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "popular_items length (default from config)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [PATH]",
		Short: "Write the catalog as a JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Snapshot
			if len(args) == 1 {
				path = args[0]
			}
			if err := a.lm.ExportFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog exported to %s\n", path)
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [PATH]",
		Short: "Replace the catalog with a JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Snapshot
			if len(args) == 1 {
				path = args[0]
			}
			warnings, err := a.lm.ImportFile(cmd.Context(), path)
			out := cmd.OutOrStdout()
			for _, w := range warnings {
				fmt.Fprintf(out, "Warning: %v\n", w)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d items and %d patrons from %s\n",
				len(a.lm.ListItems()), len(a.lm.ListPatrons()), path)
			return nil
		},
	}
}

// ------------------ notifications ------------------

func (a *app) notifyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "notify", Short: "Patron notifications"}

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "Send today's overdue reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notes, err := a.lm.NotifyOverdue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d overdue notice(s) sent\n", len(notes))
			return nil
		},
	}

	send := &cobra.Command{
		Use:   "send PATRON_ID MESSAGE",
		Short: "Send a general notice to a patron",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patron", args[0])
			if err != nil {
				return err
			}
			n, err := a.lm.Notify(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notification #%d sent to patron %d\n", n.ID, id)
			return nil
		},
	}

	var unread bool
	list := &cobra.Command{
		Use:   "list PATRON_ID",
		Short: "Show a patron's inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patron", args[0])
			if err != nil {
				return err
			}
			notes, err := a.lm.Notifications(id, unread)
			if err != nil {
				return err
			}
			printNotifications(cmd.OutOrStdout(), notes)
			return nil
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread notifications")

	read := &cobra.Command{
		Use:   "read PATRON_ID NOTIFICATION_ID",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("patron", args[0])
			if err != nil {
				return err
			}
			nid, err := parseID("notification", args[1])
			if err != nil {
				return err
			}
			return a.lm.MarkNotificationRead(cmd.Context(), id, nid)
		},
	}

	deliver := &cobra.Command{
		Use:   "deliver",
		Short: "Print and clear queued notifications from the outbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := notify.NewDispatcher(a.box, notify.ConsoleDeliverer{W: cmd.OutOrStdout()}, a.log)
			n, err := d.Drain(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d notification(s) delivered\n", n)
			return nil
		},
	}

	cmd.AddCommand(overdue, send, list, read, deliver)
	return cmd
}
