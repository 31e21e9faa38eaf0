package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is a single shipping address embedded in the user document.
// Slice order is creation order; the earliest remaining address is the
// promotion candidate when a default is deleted.
type Address struct {
	ID        string    `bson:"id" json:"id"`
	Title     string    `bson:"title" json:"title"`
	FullName  string    `bson:"fullName,omitempty" json:"fullName,omitempty"`
	Detail    string    `bson:"detail" json:"detail"`
	City      string    `bson:"city,omitempty" json:"city,omitempty"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Note      string    `bson:"note,omitempty" json:"note,omitempty"`
	IsDefault bool      `bson:"isDefault" json:"isDefault"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// User is the account document. Version guards concurrent address
// mutations: every write to Addresses goes through a conditional update
// that matches the loaded version and increments it.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Name         string             `bson:"name" json:"name"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role         string             `bson:"role" json:"role"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	Addresses    []Address          `bson:"addresses" json:"addresses"`
	Version      int64              `bson:"version" json:"-"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
