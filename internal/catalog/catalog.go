// Package catalog merges the fixed built-in category list with the
// user-added categories kept in the record store. The catalog is an
// explicitly constructed instance handed to whoever needs it; there is no
// process-wide singleton.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"piggyflow/internal/core"
)

// DisplayCategory is an emoji+name pair as presented for selection or on a
// stored record. Built-in and user entries are indistinguishable once an
// expense captured them; the record keeps only these two strings.
type DisplayCategory struct {
	Emoji string
	Name  string
}

// BuiltIns is the fixed category list every install offers. Order matters:
// it is the presentation order.
var BuiltIns = []DisplayCategory{
	{"🍔", "Food"},
	{"🎬", "Movie"},
	{"📺", "OTT"},
	{"🛒", "Groceries"},
	{"🏠", "Home"},
	{"🚌", "Transport"},
	{"🎉", "Entertainment"},
	{"🍹", "Drinks"},
	{"🛍️", "Shopping"},
	{"💡", "Power Bill"},
	{"📱", "Phone"},
	{"🌐", "Internet"},
	{"⛽", "Fuel"},
	{"🔖", "Others"},
}

// Store is the slice of the record store the catalog needs: read-all plus
// append. No edit or delete exists for categories.
type Store interface {
	ListUserCategories(ctx context.Context) ([]core.UserCategory, error)
	InsertUserCategory(ctx context.Context, c core.UserCategory) error
}

type Catalog struct {
	store Store
}

func New(store Store) *Catalog {
	return &Catalog{store: store}
}

// All returns the selectable set: built-ins first, then the user categories
// in store order. Duplicates are kept as stored.
func (c *Catalog) All(ctx context.Context) ([]DisplayCategory, error) {
	user, err := c.store.ListUserCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch user categories: %w", err)
	}
	out := make([]DisplayCategory, 0, len(BuiltIns)+len(user))
	out = append(out, BuiltIns...)
	for _, u := range user {
		out = append(out, DisplayCategory{Emoji: u.Emoji, Name: u.Name})
	}
	return out, nil
}

// UserCategories returns only the user-added entries, with identifiers.
func (c *Catalog) UserCategories(ctx context.Context) ([]core.UserCategory, error) {
	user, err := c.store.ListUserCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch user categories: %w", err)
	}
	return user, nil
}

// AddCategory appends a new user category. Trimmed-empty name or emoji
// fails validation and nothing is written; duplicates are accepted as-is.
func (c *Catalog) AddCategory(ctx context.Context, name, emoji string) (core.UserCategory, error) {
	cat := core.UserCategory{Name: name, Emoji: emoji}
	if err := cat.Validate(); err != nil {
		return core.UserCategory{}, err
	}
	cat.EnsureID()
	if err := c.store.InsertUserCategory(ctx, cat); err != nil {
		return core.UserCategory{}, fmt.Errorf("save category: %w", err)
	}
	slog.InfoContext(ctx, "User category added", "id", cat.ID, "name", cat.Name)
	return cat, nil
}

// Resolve maps a stored emoji+name pair to its display form. Records keep
// the literal strings captured at creation time, so this is a pass-through:
// catalog changes never dangle existing records.
func Resolve(storedEmoji, storedName string) DisplayCategory {
	return DisplayCategory{Emoji: storedEmoji, Name: storedName}
}
