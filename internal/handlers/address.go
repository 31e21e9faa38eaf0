package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type addressRequest struct {
	Title     string `json:"title" binding:"required"`
	FullName  string `json:"fullName"`
	Detail    string `json:"detail" binding:"required"`
	City      string `json:"city"`
	Phone     string `json:"phone"`
	Note      string `json:"note"`
	IsDefault bool   `json:"isDefault"`
}

func (r addressRequest) toAddress() models.Address {
	return models.Address{
		Title:     strings.TrimSpace(r.Title),
		FullName:  strings.TrimSpace(r.FullName),
		Detail:    strings.TrimSpace(r.Detail),
		City:      strings.TrimSpace(r.City),
		Phone:     strings.TrimSpace(r.Phone),
		Note:      strings.TrimSpace(r.Note),
		IsDefault: r.IsDefault,
	}
}

func GetUserAddresses(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/addresses"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"addresses": user.Addresses})
	}
}

func CreateUserAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/addresses"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		address := req.toAddress()
		address.ID = uuid.NewString()
		address.CreatedAt = time.Now()

		planned := planAddressCreate(user.Addresses, address)

		if err := commitAddresses(ctx, db, user, planned); err != nil {
			respondAddressError(c, route, err)
			return
		}

		// planAddressCreate may have forced the default flag on.
		created := planned[len(planned)-1]

		log.Println("[ADDRESS] [INFO] address created:", created.ID)
		c.JSON(http.StatusCreated, gin.H{"address": created})
	}
}

func UpdateUserAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/addresses/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		planned, index := planAddressUpdate(user.Addresses, addressID, req.toAddress())
		if index == -1 {
			respondAddressError(c, route, addressNotFoundError{AddressID: addressID})
			return
		}

		if err := commitAddresses(ctx, db, user, planned); err != nil {
			respondAddressError(c, route, err)
			return
		}

		log.Println("[ADDRESS] [INFO] address updated:", addressID)
		c.JSON(http.StatusOK, gin.H{"address": planned[index]})
	}
}

func DeleteUserAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/addresses/:id"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		planned, found := planAddressDelete(user.Addresses, addressID)
		if !found {
			respondAddressError(c, route, addressNotFoundError{AddressID: addressID})
			return
		}

		if err := commitAddresses(ctx, db, user, planned); err != nil {
			respondAddressError(c, route, err)
			return
		}

		log.Println("[ADDRESS] [INFO] address deleted:", addressID)
		c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
	}
}

func loadUser(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.User, error) {
	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	return user, err
}

// commitAddresses writes the planned address slice in one conditional
// update keyed on the version loaded with the user. Promotion/demotion and
// the triggering insert or delete land in the same document write, and two
// requests racing on the same user cannot both match the same version, so
// no committed state ever violates the single-default invariant. The loser
// fails closed with errConflict instead of repairing after the fact.
func commitAddresses(ctx context.Context, db *mongo.Database, user models.User, planned []models.Address) error {
	res, err := db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": user.ID, "version": user.Version},
		bson.M{
			"$set": bson.M{"addresses": planned, "updatedAt": time.Now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errConflict
	}
	return nil
}

func respondAddressError(c *gin.Context, route string, err error) {
	var notFoundErr addressNotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
		return
	}
	if errors.Is(err, errConflict) {
		respondWithError(c, http.StatusConflict, route, "addresses were modified, retry")
		return
	}
	respondWithError(c, http.StatusInternalServerError, route, "db error")
}
