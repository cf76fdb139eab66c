// Package models holds the persisted rows and wire types shared by the server packages.
package models

// All returns every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&TeamMessage{},
		&Idea{},
		&TeamProfile{},
	}
}
