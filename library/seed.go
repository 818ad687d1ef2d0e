package library

// seedDefaults fills an empty library with the demo catalog and users. It bypasses the
// librarian check since nobody can be logged in yet.
func (l *Library) seedDefaults() {
	books := []Book{
		NewBook("Introduction to Algorithms", "Thomas H. Cormen", "MIT Press", 2009, "9780262033848"),
		NewBook("Clean Code", "Robert C. Martin", "Prentice Hall", 2008, "9780132350884"),
		NewBook("Design Patterns", "Erich Gamma", "Addison-Wesley", 1994, "9780201633610"),
		NewBook("The Pragmatic Programmer", "Andrew Hunt", "Addison-Wesley", 1999, "9780201616224"),
		NewBook("Code Complete", "Steve McConnell", "Microsoft Press", 2004, "9780735619678"),
		NewBook("Refactoring", "Martin Fowler", "Addison-Wesley", 1999, "9780201485677"),
		NewBook("Head First Design Patterns", "Eric Freeman", "O'Reilly Media", 2004, "9780596007126"),
		NewBook("The C Programming Language", "Brian W. Kernighan", "Prentice Hall", 1988, "9780131103627"),
		NewBook("Effective C++", "Scott Meyers", "Addison-Wesley", 2005, "9780321334879"),
		NewBook("Programming Pearls", "Jon Bentley", "Addison-Wesley", 1999, "9780201657883"),
	}
	users := []User{
		NewUser(1001, "John Smith", "john@example.com", "password1", RoleStudent),
		NewUser(1002, "Emily Johnson", "emily@example.com", "password2", RoleStudent),
		NewUser(1003, "Michael Brown", "michael@example.com", "password3", RoleStudent),
		NewUser(1004, "Jessica Davis", "jessica@example.com", "password4", RoleStudent),
		NewUser(1005, "Daniel Wilson", "daniel@example.com", "password5", RoleStudent),
		NewUser(2001, "Dr. Alan Turing", "turing@example.com", "password6", RoleFaculty),
		NewUser(2002, "Dr. Grace Hopper", "hopper@example.com", "password7", RoleFaculty),
		NewUser(2003, "Dr. Ada Lovelace", "ada@example.com", "password8", RoleFaculty),
		NewUser(3001, "Laura Librarian", "laura@example.com", "password9", RoleLibrarian),
	}
	for _, b := range books {
		if err := l.insertBook(b); err != nil {
			l.log.Warn("skipping seed book", "isbn", b.ISBN, "error", err)
		}
	}
	for _, u := range users {
		if _, exists := l.users[u.ID]; exists {
			continue
		}
		if err := l.insertUser(u); err != nil {
			l.log.Warn("skipping seed user", "user", u.ID, "error", err)
		}
	}
}
