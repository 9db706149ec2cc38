package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role routes users to a dashboard and picks mail wording.
type Role string

const (
	RoleFarmer     Role = "farmer"
	RoleResearcher Role = "researcher"
)

func (r Role) Valid() bool { return r == RoleFarmer || r == RoleResearcher }

type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"               json:"id"`
	Name              string             `bson:"name"                        json:"name"`
	Email             string             `bson:"email"                       json:"email"` // lower-cased, unique
	Mobile            string             `bson:"mobile"                      json:"mobile"`
	PasswordHash      string             `bson:"passwordHash"                json:"-"`
	Role              Role               `bson:"role"                        json:"role"`
	IsVerified        bool               `bson:"isVerified"                  json:"is_verified"`
	VerificationToken string             `bson:"verificationToken,omitempty" json:"-"`
	CreatedAt         time.Time          `bson:"createdAt"                   json:"created_at"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
