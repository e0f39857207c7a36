package handlers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-api/internal/mailer"
	"storefront-api/internal/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestHandlers wires a Handlers instance onto a sqlmock connection.
func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Handlers{DB: db, Mailer: mailer.LogMailer{}}, mock
}

// asUser injects an authenticated identity the way RequireAuth would.
func asUser(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, userID)
	}
}

// asGuest injects a guest session the way CartIdentity would.
func asGuest(sessionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxSessionID, sessionID)
	}
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
