package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/mailer"
	"storefront/internal/models"
)

type checkoutRequest struct {
	AddressID     string `json:"addressId" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
	Note          string `json:"note"`
}

var orderStatuses = map[string]bool{
	"pending":   true,
	"confirmed": true,
	"shipped":   true,
	"delivered": true,
	"cancelled": true,
}

// Checkout turns the user's cart into an order. Stock is re-checked and
// decremented with conditional updates inside one transaction, so two
// racing checkouts cannot both take the last unit; prices are
// re-snapshotted from the catalog at commit time. The cart is emptied in
// the same transaction.
func Checkout(db *mongo.Database, mail *mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if req.PaymentMethod != "cash" && req.PaymentMethod != "card" {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		user, err := loadUser(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		var shipping *models.Address
		for i := range user.Addresses {
			if user.Addresses[i].ID == strings.TrimSpace(req.AddressID) {
				shipping = &user.Addresses[i]
				break
			}
		}
		if shipping == nil {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}

		cart, err := loadCart(ctx, db, userID)
		if err == mongo.ErrNoDocuments || (err == nil && len(cart.Items) == 0) {
			respondWithError(c, http.StatusBadRequest, route, "cart is empty")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		order := models.Order{
			UserID: userID,
			Shipping: models.OrderShipping{
				Title:  shipping.Title,
				Detail: shipping.Detail,
				Note:   strings.TrimSpace(req.Note),
			},
			PaymentMethod: req.PaymentMethod,
			Status:        "pending",
			CreatedAt:     time.Now(),
		}

		var orderID primitive.ObjectID
		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			items := make([]models.OrderItem, 0, len(cart.Items))
			total := 0.0

			for _, line := range cart.Items {
				var product models.Product
				err := db.Collection("products").FindOne(sessCtx, bson.M{
					"_id":       line.ProductID,
					"isDeleted": bson.M{"$ne": true},
				}).Decode(&product)
				if err == mongo.ErrNoDocuments {
					return nil, productNotFoundError{ProductID: line.ProductID}
				}
				if err != nil {
					return nil, err
				}

				if product.Stock < line.Quantity {
					return nil, outOfStockError{
						ProductID: line.ProductID,
						Available: product.Stock,
						Requested: line.Quantity,
					}
				}

				unitPrice := effectiveProductPrice(product.Price, product.SaleEnabled, product.SalePrice)
				items = append(items, models.OrderItem{
					ProductID: line.ProductID,
					Name:      product.Name,
					Variants:  line.Variants,
					Price:     unitPrice,
					Quantity:  line.Quantity,
				})
				total += unitPrice * float64(line.Quantity)

				res, err := db.Collection("products").UpdateOne(sessCtx,
					bson.M{
						"_id":       line.ProductID,
						"isDeleted": bson.M{"$ne": true},
						"stock":     bson.M{"$gte": line.Quantity},
					},
					bson.M{"$inc": bson.M{"stock": -line.Quantity}},
				)
				if err != nil {
					return nil, err
				}
				if res.MatchedCount == 0 {
					return nil, outOfStockError{
						ProductID: line.ProductID,
						Available: product.Stock,
						Requested: line.Quantity,
					}
				}
			}

			order.Items = items
			order.TotalPrice = total

			res, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			if id, ok := res.InsertedID.(primitive.ObjectID); ok {
				orderID = id
			}

			// Empty the cart under the loaded version; a racing cart
			// mutation aborts the whole checkout.
			upd, err := db.Collection("carts").UpdateOne(sessCtx,
				bson.M{"_id": cart.ID, "version": cart.Version},
				bson.M{
					"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()},
					"$inc": bson.M{"version": 1},
				},
			)
			if err != nil {
				return nil, err
			}
			if upd.MatchedCount == 0 {
				return nil, errConflict
			}
			return nil, nil
		})
		if err != nil {
			respondCheckoutError(c, route, err)
			return
		}

		order.ID = orderID
		go mail.SendOrderConfirmation(user.Email, orderID.Hex(), order.TotalPrice)

		log.Println("[ORDER] [INFO] order created:", orderID.Hex(), "user:", userID.Hex())
		c.JSON(http.StatusCreated, gin.H{
			"orderId":    orderID.Hex(),
			"totalPrice": order.TotalPrice,
			"message":    "order created",
		})
	}
}

func respondCheckoutError(c *gin.Context, route string, err error) {
	var stockErr outOfStockError
	if errors.As(err, &stockErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "out of stock",
			"productId": stockErr.ProductID.Hex(),
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}

	var notFoundErr productNotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "product not found",
			"productId": notFoundErr.ProductID.Hex(),
		})
		return
	}

	if errors.Is(err, errConflict) {
		respondWithError(c, http.StatusConflict, route, "cart was modified, retry")
		return
	}

	respondWithError(c, http.StatusInternalServerError, route, "db error")
}

func GetMyOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("orders").Find(ctx, bson.M{"userId": userID}, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

func GetAllOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		filter := bson.M{}
		if status := strings.TrimSpace(c.Query("status")); status != "" {
			filter["status"] = status
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("orders").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		opts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("orders").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": orders, "page": page, "limit": limit, "total": total})
	}
}

func UpdateOrderStatus(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/orders/:id/status"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if !orderStatuses[req.Status] {
			respondWithError(c, http.StatusBadRequest, route, "invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("orders").UpdateByID(ctx, orderID, bson.M{
			"$set": bson.M{"status": req.Status},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}

		log.Println("[ORDER] [INFO] status updated:", orderID.Hex(), "->", req.Status)
		c.JSON(http.StatusOK, gin.H{"message": "order updated"})
	}
}

func DeleteOrder(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/orders/:id"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("orders").DeleteOne(ctx, bson.M{"_id": orderID})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}

		log.Println("[ORDER] [INFO] order deleted:", orderID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
	}
}
