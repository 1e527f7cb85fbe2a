package main

import (
	"github.com/jackc/pgx/v5"

	"github.com/mrjvadi/busrpc/store"
	"github.com/mrjvadi/busrpc/store/pgstore"
)

// User is the CRUD handler's reference entity: the "Users" resource used
// throughout the end-to-end scenarios.
type User struct {
	store.Base
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func newUser() *User { return &User{} }

func cloneUser(u *User) *User {
	c := *u
	return &c
}

var userMapper = pgstore.Mapper[*User]{
	Table:   "users",
	Columns: []string{"name", "email"},
	Values: func(u *User) []any {
		return []any{u.Name, u.Email}
	},
	Scan: func(row pgx.Row) (*User, error) {
		u := &User{}
		if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		return u, nil
	},
}
