package models

// User is keyed by username. The password hash is supplied by the client
// and never rendered back.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// PublicUser is the client-facing projection of a User
type PublicUser struct {
	Username string `json:"username"`
}

func (User) TypeName() string { return "user" }

func (User) RequiredValues() string {
	return ` Requires values "username": string and "password_hash": string`
}

func (u User) Validate() error {
	if u.Username == "" {
		return invalid(u, "requires a username")
	}
	if u.PasswordHash == "" {
		return invalid(u, "requires a password_hash")
	}
	return nil
}

func (u User) Public() any {
	return PublicUser{Username: u.Username}
}

// UserList is the body of GET /users
type UserList struct {
	Users []string `json:"users"`
}

// Usernames projects users onto a UserList
func Usernames(users []User) UserList {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return UserList{Users: names}
}
