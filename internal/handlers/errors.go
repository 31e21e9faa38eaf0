package handlers

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	errInvalidQuantity = errors.New("quantity must be at least 1")

	// errConflict reports that a conditional update lost a version race.
	// The caller sees 409 and retries; the invariant is never repaired
	// after the fact.
	errConflict = errors.New("concurrent modification")
)

type productNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e productNotFoundError) Error() string {
	return "product not found: " + e.ProductID.Hex()
}

type outOfStockError struct {
	ProductID primitive.ObjectID
	Available int
	Requested int
}

func (e outOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock: requested %d, available %d",
		e.ProductID.Hex(), e.Requested, e.Available)
}

type lineNotFoundError struct {
	Key string
}

func (e lineNotFoundError) Error() string {
	return "cart line not found: " + e.Key
}

type addressNotFoundError struct {
	AddressID string
}

func (e addressNotFoundError) Error() string {
	return "address not found: " + e.AddressID
}
