package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

var errMissing = errors.New("missing")

func TestStatusFor(t *testing.T) {
	mappings := []Mapping{{Err: errMissing, Status: http.StatusNotFound}}

	assert.Equal(t, http.StatusNotFound, StatusFor(errMissing, mappings))
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("load: %w", errMissing), mappings))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom"), mappings))
}

func TestFromErrorHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, errors.New("pq: connection refused"), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal server error"}`, w.Body.String())
}
