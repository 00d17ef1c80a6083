package fraud

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shailjagaurzz/jan-kavach/pkg/middleware"
)

// newLogResponseRouter mirrors the production route registration for the
// detection log response endpoint, with the authenticated user injected.
func newLogResponseRouter(t *testing.T, repo *mockFraudRepository, userID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := newTestService(t, repo, nil)
	handler := NewHandler(service)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID.String())
	})
	router.PATCH("/fraud/logs/:id/response", middleware.ValidateRequest(&ResponseRequest{}), handler.UpdateLogResponse)
	return router
}

func patchLogResponse(router *gin.Engine, logID string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, "/fraud/logs/"+logID+"/response", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUpdateLogResponseRoute_Success(t *testing.T) {
	repo := new(mockFraudRepository)
	userID, logID := uuid.New(), uuid.New()
	router := newLogResponseRouter(t, repo, userID)

	repo.On("UpdateDetectionLogResponse", mock.Anything, logID, userID, ResponseMarkedSafe).Return(nil).Once()

	rec := patchLogResponse(router, logID.String(), `{"response":"marked_safe"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestUpdateLogResponseRoute_RejectsUnknownResponse(t *testing.T) {
	repo := new(mockFraudRepository)
	router := newLogResponseRouter(t, repo, uuid.New())

	rec := patchLogResponse(router, uuid.NewString(), `{"response":"shrugged"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "UpdateDetectionLogResponse")
}

func TestUpdateLogResponseRoute_RejectsInvalidLogID(t *testing.T) {
	repo := new(mockFraudRepository)
	router := newLogResponseRouter(t, repo, uuid.New())

	rec := patchLogResponse(router, "not-a-uuid", `{"response":"ignored"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "UpdateDetectionLogResponse")
}

func TestUpdateLogResponseRoute_UnknownLog(t *testing.T) {
	repo := new(mockFraudRepository)
	userID, logID := uuid.New(), uuid.New()
	router := newLogResponseRouter(t, repo, userID)

	repo.On("UpdateDetectionLogResponse", mock.Anything, logID, userID, ResponseIgnored).Return(pgx.ErrNoRows).Once()

	rec := patchLogResponse(router, logID.String(), `{"response":"ignored"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	repo.AssertExpectations(t)
}

func TestUpdateLogResponseRoute_StoreFailure(t *testing.T) {
	// An outage on the detection log store is not the same as a missing log.
	repo := new(mockFraudRepository)
	userID, logID := uuid.New(), uuid.New()
	router := newLogResponseRouter(t, repo, userID)

	repo.On("UpdateDetectionLogResponse", mock.Anything, logID, userID, ResponseConfirmedFraud).
		Return(errors.New("connection reset")).Once()

	rec := patchLogResponse(router, logID.String(), `{"response":"confirmed_fraud"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	repo.AssertExpectations(t)
}
