package library

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Library owns the catalog, the user registry, the accounts and the lending journal,
// and mediates every operation that touches more than one of them.
//
// A Library is single-session and not safe for concurrent use.
type Library struct {
	books    map[string]*Book
	users    map[int64]*User
	accounts map[int64]*Account
	journal  []Transaction

	session int64 // logged-in user id, 0 when nobody is logged in
	loadErr error // set while the store holds data that failed to load

	store     Store
	now       func() time.Time
	log       *slog.Logger
	passwords PasswordScheme
	seed      bool
}

// Option configures a Library.
type Option func(*Library)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(l *Library) { l.now = now } }

// WithLogger sets the logger used for load/save warnings and audit messages.
func WithLogger(log *slog.Logger) Option { return func(l *Library) { l.log = log } }

// WithPasswordScheme sets how passwords of newly added users are stored.
func WithPasswordScheme(s PasswordScheme) Option { return func(l *Library) { l.passwords = s } }

// WithSeed controls whether Load inserts demo data into an empty catalog.
func WithSeed(seed bool) Option { return func(l *Library) { l.seed = seed } }

// NewLibrary returns an empty Library backed by store. Call Load to read persisted state.
// store may be nil for a purely in-memory library.
func NewLibrary(store Store, opts ...Option) *Library {
	l := &Library{
		books:     make(map[string]*Book),
		users:     make(map[int64]*User),
		accounts:  make(map[int64]*Account),
		store:     store,
		now:       time.Now,
		log:       slog.Default(),
		passwords: PlainPasswords,
		seed:      true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces in-memory state with the store's snapshot. A store failure is logged and
// returned, and the Library continues with empty state; seeding still applies. Until a
// later Load or Import succeeds, Save refuses to overwrite the store.
func (l *Library) Load() error {
	var loadErr error
	l.loadErr = nil
	if l.store != nil {
		snap, err := l.store.Load()
		if err == nil {
			err = l.restore(snap)
		}
		if err != nil {
			l.log.Warn("could not load library data, starting empty", "error", err)
			l.reset()
			loadErr = err
			l.loadErr = err
		}
	}
	if len(l.books) == 0 && l.seed {
		l.seedDefaults()
		l.log.Info("seeded demo data", "books", len(l.books), "users", len(l.users))
	}
	return loadErr
}

// Save writes the whole state to the store. Failures are logged and returned; in-memory
// state is untouched either way. After a failed Load it returns ErrUnsafeSave and writes
// nothing.
func (l *Library) Save() error {
	if l.store == nil {
		return nil
	}
	if l.loadErr != nil {
		l.log.Warn("not saving over data that failed to load", "load_error", l.loadErr)
		return fmt.Errorf("%w (%v)", ErrUnsafeSave, l.loadErr)
	}
	if err := l.store.Save(l.Snapshot()); err != nil {
		l.log.Warn("could not save library data", "error", err)
		return err
	}
	l.log.Debug("library data saved", "books", len(l.books), "users", len(l.users))
	return nil
}

// Close releases the store without saving.
func (l *Library) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// Snapshot returns a deep copy of the current state ordered by key.
func (l *Library) Snapshot() *Snapshot {
	snap := &Snapshot{
		Books:        make([]Book, 0, len(l.books)),
		Users:        make([]User, 0, len(l.users)),
		Accounts:     make([]Account, 0, len(l.accounts)),
		Transactions: slices.Clone(l.journal),
	}
	for _, isbn := range sortedKeys(l.books) {
		snap.Books = append(snap.Books, *l.books[isbn])
	}
	for _, id := range sortedKeys(l.users) {
		snap.Users = append(snap.Users, *l.users[id])
	}
	for _, id := range sortedKeys(l.accounts) {
		snap.Accounts = append(snap.Accounts, l.accounts[id].clone())
	}
	return snap
}

// restore installs snap after checking the cross-entity invariants. On error the
// Library is left unchanged.
func (l *Library) restore(snap *Snapshot) error {
	if err := snap.Check(); err != nil {
		return err
	}
	books := make(map[string]*Book, len(snap.Books))
	for _, b := range snap.Books {
		books[b.ISBN] = &b
	}
	users := make(map[int64]*User, len(snap.Users))
	for _, u := range snap.Users {
		users[u.ID] = &u
	}
	accounts := make(map[int64]*Account, len(snap.Accounts))
	for _, a := range snap.Accounts {
		acc := a.clone()
		accounts[a.UserID] = &acc
	}
	// Users saved without an account get a fresh one.
	for id := range users {
		if _, ok := accounts[id]; !ok {
			accounts[id] = NewAccount(id)
		}
	}
	l.books, l.users, l.accounts = books, users, accounts
	l.journal = slices.Clone(snap.Transactions)
	l.session = 0
	return nil
}

// Import replaces the whole state with snap, for example one read by ReadLegacyDir.
// The snapshot must pass Check; on error nothing changes. Any session is ended.
func (l *Library) Import(snap *Snapshot) error {
	if err := l.restore(snap); err != nil {
		return err
	}
	l.loadErr = nil
	l.log.Info("imported library data", "books", len(l.books), "users", len(l.users))
	return nil
}

func (l *Library) reset() {
	l.books = make(map[string]*Book)
	l.users = make(map[int64]*User)
	l.accounts = make(map[int64]*Account)
	l.journal = nil
	l.session = 0
}

// resolve looks up the three entities every lending operation needs.
func (l *Library) resolve(userID int64, isbn string) (*User, *Book, *Account, error) {
	user, ok := l.users[userID]
	if !ok {
		return nil, nil, nil, unknownUser(userID)
	}
	book, ok := l.books[isbn]
	if !ok {
		return nil, nil, nil, unknownBook(isbn)
	}
	account, ok := l.accounts[userID]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: no account for user %d", ErrInvalidReference, userID)
	}
	return user, book, account, nil
}

// ------------------ Session ------------------

// Login starts a session for userID when password matches, replacing any previous session.
// On failure no session is active.
func (l *Library) Login(userID int64, password string) error {
	l.session = 0
	user, ok := l.users[userID]
	if !ok {
		return fmt.Errorf("%w: user ID %d not found", ErrAuthFailed, userID)
	}
	if !verifyPassword(user.Password, password) {
		return fmt.Errorf("%w: incorrect password", ErrAuthFailed)
	}
	l.session = userID
	l.log.Info("login", "user", userID, "role", user.Role)
	return nil
}

// Logout ends the current session, if any.
func (l *Library) Logout() {
	if l.session != 0 {
		l.log.Info("logout", "user", l.session)
	}
	l.session = 0
}

// IsLoggedIn reports whether a session is active.
func (l *Library) IsLoggedIn() bool { return l.CurrentUser() != nil }

// CurrentUser returns a copy of the logged-in user, or nil.
func (l *Library) CurrentUser() *User {
	u, ok := l.users[l.session]
	if !ok {
		return nil
	}
	c := *u
	return &c
}

func (l *Library) requireLibrarian(action string) error {
	u, ok := l.users[l.session]
	if !ok || u.Role != RoleLibrarian {
		l.log.Debug("privileged operation denied", "action", action, "session", l.session)
		return fmt.Errorf("%w: only librarians can %s", ErrAccessDenied, action)
	}
	return nil
}

func (l *Library) requireSelfOrLibrarian(userID int64, action string) error {
	if l.session != 0 && l.session == userID {
		if _, ok := l.users[userID]; ok {
			return nil
		}
	}
	return l.requireLibrarian(action)
}

// ------------------ Lookups ------------------

// GetBook returns a copy of the book with the given ISBN.
func (l *Library) GetBook(isbn string) (Book, error) {
	b, ok := l.books[isbn]
	if !ok {
		return Book{}, unknownBook(isbn)
	}
	return *b, nil
}

// GetUser returns a copy of the user with the given id.
func (l *Library) GetUser(id int64) (User, error) {
	u, ok := l.users[id]
	if !ok {
		return User{}, unknownUser(id)
	}
	return *u, nil
}

// Books lists the catalog ordered by ISBN.
func (l *Library) Books() []Book {
	out := make([]Book, 0, len(l.books))
	for _, isbn := range sortedKeys(l.books) {
		out = append(out, *l.books[isbn])
	}
	return out
}

// SearchBooks returns books whose title, author or ISBN contains keyword, ignoring case.
// An empty keyword matches nothing.
func (l *Library) SearchBooks(keyword string) []Book {
	q := strings.ToLower(strings.TrimSpace(keyword))
	if q == "" {
		return []Book{}
	}
	var out []Book
	for _, b := range l.Books() {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.ISBN), q) {
			out = append(out, b)
		}
	}
	return out
}

// Account returns a copy of userID's account. Librarians may view any account,
// other users only their own.
func (l *Library) Account(userID int64) (Account, error) {
	if err := l.requireSelfOrLibrarian(userID, "view other accounts"); err != nil {
		return Account{}, err
	}
	a, ok := l.accounts[userID]
	if !ok {
		return Account{}, fmt.Errorf("%w: no account for user %d", ErrInvalidReference, userID)
	}
	return a.clone(), nil
}

// AccountView is what a logged-in user sees about themselves.
type AccountView struct {
	User     User
	Account  Account
	Borrowed []Book // current loans in borrowing order, with due dates
	History  []Book // previously borrowed books still in the catalog
}

// MyAccount describes the current session's account.
func (l *Library) MyAccount() (AccountView, error) {
	u := l.CurrentUser()
	if u == nil {
		return AccountView{}, fmt.Errorf("%w: please log in first", ErrAccessDenied)
	}
	acc, ok := l.accounts[u.ID]
	if !ok {
		return AccountView{}, fmt.Errorf("%w: no account found for this user", ErrInvalidReference)
	}
	view := AccountView{User: *u, Account: acc.clone()}
	for _, isbn := range acc.Borrowed {
		if b, ok := l.books[isbn]; ok {
			view.Borrowed = append(view.Borrowed, *b)
		}
	}
	for _, isbn := range acc.History {
		if b, ok := l.books[isbn]; ok {
			view.History = append(view.History, *b)
		}
	}
	return view, nil
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
