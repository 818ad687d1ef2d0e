package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-lending/library"

	"golang.org/x/term"
)

const dateLayout = "2006-01-02 15:04"

// console is the interactive menu loop. All prompts read from sc and write to out.
type console struct {
	sc           *bufio.Scanner
	out          io.Writer
	lib          *library.Library
	readPassword func(prompt string) (string, error)
}

func newConsole(sc *bufio.Scanner, out io.Writer, lib *library.Library) *console {
	c := &console{sc: sc, out: out, lib: lib}
	c.readPassword = c.readPasswordLine
	if out == os.Stdout && term.IsTerminal(int(os.Stdin.Fd())) {
		c.readPassword = c.readPasswordMasked
	}
	return c
}

// readPasswordMasked reads a password without echoing it.
func (c *console) readPasswordMasked(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(c.out) // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func (c *console) readPasswordLine(prompt string) (string, error) {
	s, ok := c.prompt(prompt)
	if !ok {
		return "", io.EOF
	}
	return s, nil
}

func (c *console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.sc.Text()), true
}

func (c *console) promptInt(label string) (int64, bool) {
	s, ok := c.prompt(label)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid number: %s\n", s)
		return 0, false
	}
	return n, true
}

// run drives the menus until exit or end of input, then saves everything.
func (c *console) run() {
	fmt.Fprintln(c.out, "Welcome to the Library Management System!")
	for c.step() {
	}
	if err := c.lib.Save(); err != nil {
		fmt.Fprintf(c.out, "Warning: could not save data: %v\n", err)
	} else {
		fmt.Fprintln(c.out, "Data saved. Goodbye!")
	}
}

// step shows the menu for the current session and handles one choice.
func (c *console) step() bool {
	u := c.lib.CurrentUser()
	switch {
	case u == nil:
		return c.loginMenu()
	case u.Role == library.RoleLibrarian:
		return c.librarianMenu(u)
	default:
		return c.memberMenu(u)
	}
}

func (c *console) loginMenu() bool {
	fmt.Fprintln(c.out, "\n1. Login\n2. Exit")
	choice, ok := c.prompt("> ")
	if !ok {
		return false
	}
	switch choice {
	case "1":
		c.handleLogin()
	case "2", "exit":
		return false
	default:
		fmt.Fprintln(c.out, "Invalid choice. Try again.")
	}
	return true
}

func (c *console) memberMenu(u *library.User) bool {
	fmt.Fprintf(c.out, "\n[%s: %s]\n", u.Role, u.Name)
	fmt.Fprintln(c.out, "1. Browse books\n2. Search books\n3. View my account\n4. Borrow a book\n5. Return a book\n6. Logout")
	choice, ok := c.prompt("> ")
	if !ok {
		return false
	}
	switch choice {
	case "1":
		c.printBooks(c.lib.Books())
	case "2":
		c.handleSearch()
	case "3":
		c.handleMyAccount()
	case "4":
		c.handleBorrow(u.ID)
	case "5":
		c.handleReturn(u.ID)
	case "6":
		c.lib.Logout()
		fmt.Fprintln(c.out, "Logged out successfully.")
	default:
		fmt.Fprintln(c.out, "Invalid choice. Try again.")
	}
	return true
}

func (c *console) librarianMenu(u *library.User) bool {
	fmt.Fprintf(c.out, "\n[Librarian: %s]\n", u.Name)
	fmt.Fprintln(c.out, "1. Books management\n2. User management\n3. Reports\n4. Settle fines\n5. Save now\n6. Logout")
	choice, ok := c.prompt("> ")
	if !ok {
		return false
	}
	switch choice {
	case "1":
		return c.booksMenu()
	case "2":
		return c.usersMenu()
	case "3":
		return c.reportsMenu()
	case "4":
		c.handleSettleFines()
	case "5":
		if err := c.lib.Save(); err != nil {
			fmt.Fprintf(c.out, "Warning: could not save data: %v\n", err)
		} else {
			fmt.Fprintln(c.out, "Data saved.")
		}
	case "6":
		c.lib.Logout()
		fmt.Fprintln(c.out, "Logged out successfully.")
	default:
		fmt.Fprintln(c.out, "Invalid choice. Try again.")
	}
	return true
}

func (c *console) booksMenu() bool {
	for {
		fmt.Fprintln(c.out, "\nBooks: 1. List  2. Search  3. Add  4. Update  5. Remove  6. Back")
		choice, ok := c.prompt("> ")
		if !ok {
			return false
		}
		switch choice {
		case "1":
			c.printBooks(c.lib.Books())
		case "2":
			c.handleSearch()
		case "3":
			c.handleAddBook()
		case "4":
			c.handleUpdateBook()
		case "5":
			c.handleRemoveBook()
		case "6":
			return true
		default:
			fmt.Fprintln(c.out, "Invalid choice. Try again.")
		}
	}
}

func (c *console) usersMenu() bool {
	for {
		fmt.Fprintln(c.out, "\nUsers: 1. List  2. Add  3. Remove  4. View account  5. Back")
		choice, ok := c.prompt("> ")
		if !ok {
			return false
		}
		switch choice {
		case "1":
			c.handleListUsers()
		case "2":
			c.handleAddUser()
		case "3":
			c.handleRemoveUser()
		case "4":
			c.handleViewAccount()
		case "5":
			return true
		default:
			fmt.Fprintln(c.out, "Invalid choice. Try again.")
		}
	}
}

func (c *console) reportsMenu() bool {
	for {
		fmt.Fprintln(c.out, "\nReports: 1. Overdue books  2. Fine projection  3. Transactions  4. Back")
		choice, ok := c.prompt("> ")
		if !ok {
			return false
		}
		switch choice {
		case "1":
			printOverdue(c.out, c.lib)
		case "2":
			printFineProjection(c.out, c.lib)
		case "3":
			c.handleTransactions()
		case "4":
			return true
		default:
			fmt.Fprintln(c.out, "Invalid choice. Try again.")
		}
	}
}

// ------------------ Handlers ------------------

func (c *console) handleLogin() {
	id, ok := c.promptInt("User ID: ")
	if !ok {
		return
	}
	password, err := c.readPassword("Password: ")
	if err != nil {
		fmt.Fprintf(c.out, "Error reading password: %v\n", err)
		return
	}
	if err := c.lib.Login(id, password); err != nil {
		fmt.Fprintf(c.out, "Login failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Login successful. Welcome, %s!\n", c.lib.CurrentUser().Name)
}

func (c *console) handleSearch() {
	q, ok := c.prompt("Keyword: ")
	if !ok {
		return
	}
	books := c.lib.SearchBooks(q)
	if len(books) == 0 {
		fmt.Fprintf(c.out, "No books found matching '%s'.\n", q)
		return
	}
	fmt.Fprintf(c.out, "Found %d book(s) matching '%s':\n", len(books), q)
	c.printBooks(books)
}

func (c *console) handleBorrow(userID int64) {
	isbn, ok := c.prompt("ISBN: ")
	if !ok {
		return
	}
	if err := c.lib.BorrowBook(userID, isbn); err != nil {
		fmt.Fprintf(c.out, "Error borrowing book: %v\n", err)
		return
	}
	b, _ := c.lib.GetBook(isbn)
	fmt.Fprintf(c.out, "Book '%s' borrowed. Due %s.\n", b.Title, b.DueDate.Format(dateLayout))
}

func (c *console) handleReturn(userID int64) {
	isbn, ok := c.prompt("ISBN: ")
	if !ok {
		return
	}
	receipt, err := c.lib.ReturnBook(userID, isbn)
	if err != nil {
		fmt.Fprintf(c.out, "Error returning book: %v\n", err)
		return
	}
	if receipt.Fine > 0 {
		fmt.Fprintf(c.out, "Book returned. Overdue by %d days. Fine: %d\n", receipt.OverdueDays, receipt.Fine)
		return
	}
	fmt.Fprintln(c.out, "Book returned successfully.")
}

func (c *console) handleMyAccount() {
	view, err := c.lib.MyAccount()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printAccount(view.User, view.Account)
	if len(view.Borrowed) == 0 {
		fmt.Fprintln(c.out, "No books currently borrowed.")
	} else {
		fmt.Fprintln(c.out, "Currently borrowed books:")
		for _, b := range view.Borrowed {
			fmt.Fprintf(c.out, "  %-15s %-35s due %s\n", b.ISBN, truncateString(b.Title, 35), b.DueDate.Format(dateLayout))
		}
	}
	if len(view.History) > 0 {
		fmt.Fprintln(c.out, "Borrowing history:")
		for _, b := range view.History {
			fmt.Fprintf(c.out, "  %-15s %s\n", b.ISBN, b.Title)
		}
	}
}

func (c *console) handleAddBook() {
	var fields [4]string
	for i, label := range []string{"Title: ", "Author: ", "Publisher: ", "ISBN: "} {
		s, ok := c.prompt(label)
		if !ok {
			return
		}
		fields[i] = s
	}
	year, ok := c.promptInt("Year: ")
	if !ok {
		return
	}
	b := library.NewBook(fields[0], fields[1], fields[2], int(year), fields[3])
	if err := c.lib.AddBook(b); err != nil {
		fmt.Fprintf(c.out, "Error adding book: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Book added successfully.")
}

func (c *console) handleUpdateBook() {
	isbn, ok := c.prompt("ISBN: ")
	if !ok {
		return
	}
	b, err := c.lib.GetBook(isbn)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	// Empty input keeps the current value.
	for _, f := range []struct {
		label string
		dst   *string
	}{{"Title", &b.Title}, {"Author", &b.Author}, {"Publisher", &b.Publisher}} {
		s, ok := c.prompt(fmt.Sprintf("%s [%s]: ", f.label, *f.dst))
		if !ok {
			return
		}
		if s != "" {
			*f.dst = s
		}
	}
	s, ok := c.prompt(fmt.Sprintf("Year [%d]: ", b.Year))
	if !ok {
		return
	}
	if s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintf(c.out, "Invalid year: %s\n", s)
			return
		}
		b.Year = year
	}
	if err := c.lib.UpdateBook(b); err != nil {
		fmt.Fprintf(c.out, "Error updating book: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Book updated successfully.")
}

func (c *console) handleRemoveBook() {
	isbn, ok := c.prompt("ISBN: ")
	if !ok {
		return
	}
	if err := c.lib.RemoveBook(isbn); err != nil {
		fmt.Fprintf(c.out, "Error removing book: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Book removed successfully.")
}

func (c *console) handleListUsers() {
	users, err := c.lib.Users()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(users) == 0 {
		fmt.Fprintln(c.out, "No users registered.")
		return
	}
	fmt.Fprintf(c.out, "%-6s %-25s %-30s %-10s\n", "ID", "Name", "Email", "Role")
	fmt.Fprintln(c.out, rule(75))
	for _, u := range users {
		fmt.Fprintf(c.out, "%-6d %-25s %-30s %-10s\n", u.ID, truncateString(u.Name, 25), truncateString(u.Email, 30), u.Role)
	}
}

func (c *console) handleAddUser() {
	id, ok := c.promptInt("User ID: ")
	if !ok {
		return
	}
	name, ok := c.prompt("Name: ")
	if !ok {
		return
	}
	email, ok := c.prompt("Email: ")
	if !ok {
		return
	}
	roleStr, ok := c.prompt("Role (Student/Faculty/Librarian): ")
	if !ok {
		return
	}
	role, err := library.ParseRole(roleStr)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	password, err := c.readPassword(fmt.Sprintf("Password for %s: ", name))
	if err != nil {
		fmt.Fprintf(c.out, "Error reading password: %v\n", err)
		return
	}
	if err := c.lib.AddUser(library.NewUser(id, name, email, password, role)); err != nil {
		fmt.Fprintf(c.out, "Error adding user: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Added %s '%s' with ID %d\n", role, name, id)
}

func (c *console) handleRemoveUser() {
	id, ok := c.promptInt("User ID: ")
	if !ok {
		return
	}
	if err := c.lib.RemoveUser(id); err != nil {
		fmt.Fprintf(c.out, "Error removing user: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "User removed successfully.")
}

func (c *console) handleViewAccount() {
	id, ok := c.promptInt("User ID: ")
	if !ok {
		return
	}
	u, err := c.lib.GetUser(id)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	acc, err := c.lib.Account(id)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printAccount(u, acc)
}

func (c *console) handleSettleFines() {
	id, ok := c.promptInt("User ID: ")
	if !ok {
		return
	}
	paid, err := c.lib.PayFines(id)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Fines paid successfully (%d settled).\n", paid)
}

func (c *console) handleTransactions() {
	id, ok := c.promptInt("User ID (0 for all): ")
	if !ok {
		return
	}
	txs, err := c.lib.Transactions(id)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(txs) == 0 {
		fmt.Fprintln(c.out, "No transactions recorded.")
		return
	}
	fmt.Fprintf(c.out, "%-17s %-8s %-6s %-15s %s\n", "When", "Kind", "User", "ISBN", "Amount")
	fmt.Fprintln(c.out, rule(60))
	for _, tx := range txs {
		fmt.Fprintf(c.out, "%-17s %-8s %-6d %-15s %d\n", tx.At.Format(dateLayout), tx.Kind, tx.UserID, tx.ISBN, tx.Amount)
	}
}

// ------------------ Output ------------------

func (c *console) printBooks(books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(c.out, "No books in library.")
		return
	}
	fmt.Fprintf(c.out, "%-15s %-35s %-22s %-6s %-10s %s\n", "ISBN", "Title", "Author", "Year", "Status", "Due")
	fmt.Fprintln(c.out, rule(110))
	for _, b := range books {
		due := ""
		if b.Status == library.StatusBorrowed {
			due = b.DueDate.Format(dateLayout)
		}
		fmt.Fprintf(c.out, "%-15s %-35s %-22s %-6d %-10s %s\n",
			b.ISBN,
			truncateString(b.Title, 35),
			truncateString(b.Author, 22),
			b.Year,
			b.Status,
			due)
	}
}

func (c *console) printAccount(u library.User, acc library.Account) {
	paid := "Yes"
	if !acc.FinesPaid {
		paid = "No"
	}
	fmt.Fprintf(c.out, "Account of %s (ID %d, %s)\n", u.Name, u.ID, u.Role)
	fmt.Fprintf(c.out, "Borrowed books: %d | History: %d | Outstanding fines: %d | Fines paid: %s\n",
		len(acc.Borrowed), len(acc.History), acc.Fines, paid)
}

func printOverdue(out io.Writer, lib *library.Library) {
	loans := lib.CheckOverdueBooks()
	if len(loans) == 0 {
		fmt.Fprintln(out, "No overdue books.")
		return
	}
	for _, l := range loans {
		fmt.Fprintf(out, "Book \"%s\" (%s) borrowed by %d is overdue by %d days.\n",
			l.Book.Title, l.Book.ISBN, l.BorrowerID, l.OverdueDays)
	}
}

func printFineProjection(out io.Writer, lib *library.Library) {
	fines := lib.CalculateFines()
	if len(fines) == 0 {
		fmt.Fprintln(out, "No fines accruing.")
		return
	}
	var total int64
	fmt.Fprintf(out, "%-6s %-15s %-8s %s\n", "User", "ISBN", "Days", "Fine if returned now")
	fmt.Fprintln(out, rule(50))
	for _, f := range fines {
		fmt.Fprintf(out, "%-6d %-15s %-8d %d\n", f.UserID, f.ISBN, f.OverdueDays, f.Amount)
		total += f.Amount
	}
	fmt.Fprintf(out, "Total accruing: %d (charged on return)\n", total)
}
