package handlers

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/cache"
)

const maxUploadSize = 5 << 20 // 5 MiB

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadProductImage stores a product image under uploadDir and records
// its public path on the product document.
func UploadProductImage(db *mongo.Database, catalog *cache.Catalog, uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products/:id/image"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		file, err := c.FormFile("image")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "image file is required")
			return
		}
		if file.Size > maxUploadSize {
			respondWithError(c, http.StatusBadRequest, route, "image too large")
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedImageExtensions[ext] {
			respondWithError(c, http.StatusBadRequest, route, "unsupported image type")
			return
		}

		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "storage error")
			return
		}

		filename := uuid.NewString() + ext
		dest := filepath.Join(uploadDir, filename)
		if err := c.SaveUploadedFile(file, dest); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "storage error")
			return
		}

		imagePath := "/public/uploads/" + filename

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").UpdateOne(ctx,
			bson.M{"_id": productID, "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{"imagePath": imagePath}},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			// The product vanished between upload and update; do not leave
			// the orphan file behind.
			_ = os.Remove(dest)
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		catalog.Invalidate(ctx, productID.Hex())

		log.Println("[UPLOAD] [INFO] product image stored:", productID.Hex())
		c.JSON(http.StatusOK, gin.H{"imagePath": imagePath})
	}
}
