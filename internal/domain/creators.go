package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/database"
	"github.com/diegohenriquecode/employees-service-sub002/internal/services"
)

// RankCreator imports organizational ranks.
type RankCreator struct {
	store *database.Store
	table string
}

// NewRankCreator creates a rank creator over the given table.
func NewRankCreator(store *database.Store, table string) *RankCreator {
	return &RankCreator{store: store, table: table}
}

func (c *RankCreator) Fields() []services.ImportField {
	return []services.ImportField{
		{Name: "name", Label: "Rank"},
		{Name: "description", Label: "Description"},
	}
}

func (c *RankCreator) Schema() string {
	return `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"description": {"type": "string"}
		}
	}`
}

func (c *RankCreator) Create(ctx context.Context, account string, row map[string]string) (string, error) {
	id := slug(row["name"])
	item := map[string]any{
		"account":     account,
		"id":          id,
		"name":        row["name"],
		"description": row["description"],
		"created_at":  time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.store.PutConditional(ctx, c.table, item, "attribute_not_exists(id)"); err != nil {
		if errors.Is(err, database.ErrConditionFailed) {
			return "", apperrors.NewConflict("name", fmt.Sprintf("rank %q already exists", row["name"]))
		}
		return "", err
	}
	return id, nil
}

// UserCreator imports employees. Email is unique per tenant.
type UserCreator struct {
	store *database.Store
	table string
}

// NewUserCreator creates a user creator over the given table.
func NewUserCreator(store *database.Store, table string) *UserCreator {
	return &UserCreator{store: store, table: table}
}

func (c *UserCreator) Fields() []services.ImportField {
	return []services.ImportField{
		{Name: "name", Label: "Name"},
		{Name: "email", Label: "E-mail"},
		{Name: "rank", Label: "Rank"},
		{Name: "sector", Label: "Sector"},
	}
}

func (c *UserCreator) Schema() string {
	return `{
		"type": "object",
		"required": ["name", "email"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"email": {"type": "string", "format": "email"},
			"rank": {"type": "string"},
			"sector": {"type": "string"}
		}
	}`
}

func (c *UserCreator) Create(ctx context.Context, account string, row map[string]string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(row["email"]))
	// The uniqueness guard row shares the table, keyed by email, so two rows
	// with the same address collide on the conditional write.
	guard := map[string]any{
		"account": account,
		"id":      "email#" + email,
	}
	if err := c.store.PutConditional(ctx, c.table, guard, "attribute_not_exists(id)"); err != nil {
		if errors.Is(err, database.ErrConditionFailed) {
			return "", apperrors.NewConflict("email", fmt.Sprintf("user with email %s already exists", email))
		}
		return "", err
	}

	id := uuid.NewString()
	item := map[string]any{
		"account":    account,
		"id":         id,
		"name":       row["name"],
		"email":      email,
		"rank":       row["rank"],
		"sector":     row["sector"],
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.store.Put(ctx, c.table, item); err != nil {
		return "", err
	}
	return id, nil
}

// ManagerCreator imports manager assignments linking two employees.
type ManagerCreator struct {
	store *database.Store
	table string
}

// NewManagerCreator creates a manager creator over the given table.
func NewManagerCreator(store *database.Store, table string) *ManagerCreator {
	return &ManagerCreator{store: store, table: table}
}

func (c *ManagerCreator) Fields() []services.ImportField {
	return []services.ImportField{
		{Name: "employee", Label: "Employee"},
		{Name: "manager", Label: "Manager"},
	}
}

func (c *ManagerCreator) Schema() string {
	return `{
		"type": "object",
		"required": ["employee", "manager"],
		"properties": {
			"employee": {"type": "string", "format": "email"},
			"manager": {"type": "string", "format": "email"}
		}
	}`
}

func (c *ManagerCreator) Create(ctx context.Context, account string, row map[string]string) (string, error) {
	employee := strings.ToLower(strings.TrimSpace(row["employee"]))
	manager := strings.ToLower(strings.TrimSpace(row["manager"]))
	if employee == manager {
		return "", &apperrors.Error{Kind: apperrors.KindUnprocessable, Field: "manager", Msg: "employee cannot manage themselves"}
	}

	id := "manager#" + employee
	item := map[string]any{
		"account":    account,
		"id":         id,
		"employee":   employee,
		"manager":    manager,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.store.PutConditional(ctx, c.table, item, "attribute_not_exists(id)"); err != nil {
		if errors.Is(err, database.ErrConditionFailed) {
			return "", apperrors.NewConflict("employee", fmt.Sprintf("employee %s already has a manager", employee))
		}
		return "", err
	}
	return id, nil
}

// slug derives a stable id from a display name.
func slug(name string) string {
	s := services.NormalizeHeader(name)
	return strings.ReplaceAll(s, " ", "-")
}
