// Package httpapi exposes the node's two HTTP operations: POST a file
// under an authoring public key, GET a file back by its hash. It mirrors
// the original source's axum routes route-for-route.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"carbonis/internal/ids"
	"carbonis/internal/logging"
	"carbonis/internal/storeerr"
	"carbonis/internal/store"
)

// maxBody caps a single upload, matching the segment size's order of
// magnitude scaled up generously rather than leaving it unbounded.
const maxBody = 1 << 30 // 1 GiB

// NewRouter builds the gin router exposing /file/:pk (POST) and
// /file/:hash (GET), with permissive CORS matching the original source's
// tower_http::cors::CorsLayer::permissive().
func NewRouter(st *store.Store) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	router.POST("/file/:pk", postFile(st))
	router.GET("/file/:hash", getFile(st))

	return router
}

func postFile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		pk, err := ids.ParsePublicKeyHex(c.Param("pk"))
		if err != nil {
			appError(c, http.StatusBadRequest, err)
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody+1))
		if err != nil {
			appError(c, http.StatusInternalServerError, err)
			return
		}
		if len(body) > maxBody {
			appError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", maxBody))
			return
		}

		fh, err := st.WriteFile(c.Request.Context(), pk, body)
		switch {
		case err == nil:
			c.String(http.StatusOK, fh.Hex())
		case errors.Is(err, storeerr.ErrAlreadyExists):
			c.String(http.StatusOK, fh.Hex())
		default:
			appError(c, http.StatusInternalServerError, err)
		}
	}
}

func getFile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := ids.ParseFileHashHex(c.Param("hash"))
		if err != nil {
			appError(c, http.StatusBadRequest, err)
			return
		}

		data, err := st.ReadFile(c.Request.Context(), fh)
		switch {
		case err == nil:
			c.Data(http.StatusOK, "application/octet-stream", data)
		case errors.Is(err, storeerr.ErrNotFound):
			appError(c, http.StatusNotFound, err)
		default:
			appError(c, http.StatusInternalServerError, err)
		}
	}
}

// appError renders the original source's AppError format, "Something
// went wrong: <cause>", at whichever status code fits the sentinel.
func appError(c *gin.Context, status int, err error) {
	logging.Log().WithError(err).Warn("request failed")
	c.String(status, "Something went wrong: %s", err.Error())
}
