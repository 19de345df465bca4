package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/diegohenriquecode/employees-service-sub002/internal/apperrors"
	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

// AccountStore is the tenant directory backed by the accounts table.
type AccountStore struct {
	store *Store
	table string
}

// NewAccountStore creates an account store over the given table.
func NewAccountStore(store *Store, table string) *AccountStore {
	return &AccountStore{store: store, table: table}
}

// Retrieve looks a tenant up by id.
func (s *AccountStore) Retrieve(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := s.store.Get(ctx, s.table, map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}, &account)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("account %s not found", id))
		}
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}
	return &account, nil
}

// UpdateStatus flips a tenant's provisioning status.
func (s *AccountStore) UpdateStatus(ctx context.Context, account *models.Account, status models.AccountStatus) error {
	account.Status = status
	account.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, s.table, account); err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	return nil
}
