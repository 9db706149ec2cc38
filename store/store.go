// Package store persists user accounts and analysis reports.
package store

import (
	"context"
	"errors"

	"fieldfusion/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Users interface {
	// CreateUser inserts u and fills in its ID. A taken email is ErrDuplicate.
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// VerifyUser marks the owner of token verified and clears the token.
	VerifyUser(ctx context.Context, token string) (*models.User, error)
}

// Reports are always scoped to their owner.
type Reports interface {
	SaveReport(ctx context.Context, r *models.Report) error
	ListReports(ctx context.Context, owner primitive.ObjectID) ([]models.Report, error)
	GetReport(ctx context.Context, owner, id primitive.ObjectID) (*models.Report, error)
	DeleteReport(ctx context.Context, owner, id primitive.ObjectID) error
}

type Store interface {
	Users
	Reports
	Close(ctx context.Context) error
}
