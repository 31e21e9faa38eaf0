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

	"storefront/internal/cache"
	"storefront/internal/models"
)

type cartItemRequest struct {
	ProductID string            `json:"productId" binding:"required"`
	Variants  map[string]string `json:"variants"`
	Color     string            `json:"color"`
	Size      string            `json:"size"`
	Quantity  int               `json:"quantity"`
}

// selection merges the variants map with the top-level color/size fields
// older clients still send.
func (r cartItemRequest) selection() map[string]string {
	selection := make(map[string]string, len(r.Variants)+2)
	for name, value := range r.Variants {
		selection[name] = value
	}
	if _, ok := selection["color"]; !ok && r.Color != "" {
		selection["color"] = r.Color
	}
	if _, ok := selection["size"]; !ok && r.Size != "" {
		selection["size"] = r.Size
	}
	return selection
}

// cartLineView is a cart line joined with live product details. Only
// price and quantity are stored on the line; the rest is read through.
type cartLineView struct {
	models.CartItem
	Name      string `json:"name"`
	ImagePath string `json:"imagePath,omitempty"`
	Stock     int    `json:"stock"`
}

func GetCart(db *mongo.Database, catalog *cache.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, userID)
		if err != nil && err != mongo.ErrNoDocuments {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		respondWithCart(ctx, c, db, cart)
	}
}

func AddCartItem(db *mongo.Database, catalog *cache.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		product, err := lookupCatalogEntry(ctx, db, catalog, productID)
		if err != nil {
			respondCartError(c, route, err)
			return
		}

		cart, err := loadCart(ctx, db, userID)
		if err == mongo.ErrNoDocuments {
			cart = models.Cart{UserID: userID, Items: []models.CartItem{}}
		} else if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if _, err := addCartLine(&cart, product, req.selection(), req.Quantity); err != nil {
			respondCartError(c, route, err)
			return
		}

		if err := saveCart(ctx, db, &cart); err != nil {
			respondCartError(c, route, err)
			return
		}

		log.Println("[CART] [INFO] item added:", productID.Hex(), "user:", userID.Hex())
		respondWithCart(ctx, c, db, cart)
	}
}

// UpdateCartItem sets the quantity of an existing line and re-snapshots
// its price. It never creates lines: an identity with no matching line,
// canonical or legacy, is a 404.
func UpdateCartItem(db *mongo.Database, catalog *cache.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/items"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		product, err := lookupCatalogEntry(ctx, db, catalog, productID)
		if err != nil {
			respondCartError(c, route, err)
			return
		}

		cart, err := loadCart(ctx, db, userID)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "cart is empty")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if _, err := applyLineUpdate(&cart, product, req.selection(), req.Quantity); err != nil {
			respondCartError(c, route, err)
			return
		}

		if err := saveCart(ctx, db, &cart); err != nil {
			respondCartError(c, route, err)
			return
		}

		log.Println("[CART] [INFO] item updated:", productID.Hex(), "user:", userID.Hex())
		respondWithCart(ctx, c, db, cart)
	}
}

func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, userID)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "cart is empty")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if err := removeCartLine(&cart, productID, req.selection()); err != nil {
			respondCartError(c, route, err)
			return
		}

		if err := saveCart(ctx, db, &cart); err != nil {
			respondCartError(c, route, err)
			return
		}

		log.Println("[CART] [INFO] item removed:", productID.Hex(), "user:", userID.Hex())
		respondWithCart(ctx, c, db, cart)
	}
}

func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := loadCart(ctx, db, userID)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusOK, gin.H{"items": []cartLineView{}, "totalPrice": 0, "itemCount": 0})
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart.Items = []models.CartItem{}
		if err := saveCart(ctx, db, &cart); err != nil {
			respondCartError(c, route, err)
			return
		}

		log.Println("[CART] [INFO] cart cleared, user:", userID.Hex())
		respondWithCart(ctx, c, db, cart)
	}
}

/* =========================
   PERSISTENCE
========================= */

func loadCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	err := db.Collection("carts").FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	return cart, err
}

// saveCart commits the whole cart document. Existing carts are written
// with a version check so two requests racing on the same cart cannot
// overwrite each other's lines; the loser gets errConflict. First-time
// inserts lean on the unique userId index for the same guarantee.
func saveCart(ctx context.Context, db *mongo.Database, cart *models.Cart) error {
	now := time.Now()

	if cart.ID.IsZero() {
		cart.Version = 1
		cart.CreatedAt = now
		cart.UpdatedAt = now
		res, err := db.Collection("carts").InsertOne(ctx, cart)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errConflict
			}
			return err
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			cart.ID = id
		}
		return nil
	}

	res, err := db.Collection("carts").UpdateOne(ctx,
		bson.M{"_id": cart.ID, "version": cart.Version},
		bson.M{
			"$set": bson.M{"items": cart.Items, "updatedAt": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errConflict
	}

	cart.Version++
	cart.UpdatedAt = now
	return nil
}

// lookupCatalogEntry resolves a product through the cache, falling back
// to the products collection. Inactive and soft-deleted products are not
// purchasable and report as not found.
func lookupCatalogEntry(ctx context.Context, db *mongo.Database, catalog *cache.Catalog, productID primitive.ObjectID) (catalogEntry, error) {
	var entry catalogEntry
	if catalog.Get(ctx, productID.Hex(), &entry) {
		return entry, nil
	}

	var product models.Product
	err := db.Collection("products").FindOne(ctx, bson.M{
		"_id":       productID,
		"isActive":  true,
		"isDeleted": bson.M{"$ne": true},
	}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return catalogEntry{}, productNotFoundError{ProductID: productID}
	}
	if err != nil {
		return catalogEntry{}, err
	}

	entry = catalogEntry{
		ID:          product.ID,
		Name:        product.Name,
		Price:       product.Price,
		SaleEnabled: product.SaleEnabled,
		SalePrice:   product.SalePrice,
		Stock:       product.Stock,
		ImagePath:   product.ImagePath,
	}
	catalog.Set(ctx, productID.Hex(), entry)
	return entry, nil
}

/* =========================
   RESPONSES
========================= */

func respondCartError(c *gin.Context, route string, err error) {
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
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "product not found",
			"productId": notFoundErr.ProductID.Hex(),
		})
		return
	}

	var lineErr lineNotFoundError
	if errors.As(err, &lineErr) {
		c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
		return
	}

	if errors.Is(err, errInvalidQuantity) {
		respondWithError(c, http.StatusBadRequest, route, "quantity must be at least 1")
		return
	}
	if errors.Is(err, errConflict) {
		respondWithError(c, http.StatusConflict, route, "cart was modified, retry")
		return
	}

	respondWithError(c, http.StatusInternalServerError, route, "db error")
}

// respondWithCart joins the lines with live product details. Prices and
// quantities come from the stored snapshot, everything else is read
// through.
func respondWithCart(ctx context.Context, c *gin.Context, db *mongo.Database, cart models.Cart) {
	views := make([]cartLineView, 0, len(cart.Items))

	if len(cart.Items) > 0 {
		ids := make([]primitive.ObjectID, 0, len(cart.Items))
		for _, item := range cart.Items {
			ids = append(ids, item.ProductID)
		}

		cursor, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		var products []models.Product
		if err := cursor.All(ctx, &products); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		productByID := make(map[primitive.ObjectID]models.Product, len(products))
		for _, product := range products {
			productByID[product.ID] = product
		}

		for _, item := range cart.Items {
			view := cartLineView{CartItem: item}
			if product, exists := productByID[item.ProductID]; exists {
				view.Name = product.Name
				view.ImagePath = product.ImagePath
				view.Stock = product.Stock
			}
			views = append(views, view)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      views,
		"totalPrice": cart.TotalPrice(),
		"itemCount":  cart.ItemCount(),
	})
}
