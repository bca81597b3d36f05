package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/minidrive/storage/internal/web/drive/model"
)

func TestAbortErrStatusMapping(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", errors.Wrap(model.ErrValidation, "bad input"), http.StatusBadRequest},
		{"not found", errors.Wrap(model.ErrNotFound, "no such item"), http.StatusNotFound},
		{"permission", errors.Wrap(model.ErrPermissionDenied, "nope"), http.StatusForbidden},
		{"conflict", errors.Wrap(model.ErrConflict, "name taken"), http.StatusConflict},
		{"invalid state", errors.Wrap(model.ErrInvalidState, "not ready"), http.StatusConflict},
		{"integrity", errors.Wrap(model.ErrIntegrity, "blob gone"), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			abortErr(ctx, tc.err)
			require.Equal(t, tc.status, w.Code)
			require.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestItemIDParam(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Params = gin.Params{{Key: "fileId", Value: "not-an-id"}}
	_, err := itemIDParam(ctx)
	require.ErrorIs(t, err, model.ErrValidation)

	ctx.Params = gin.Params{{Key: "fileId", Value: "64b5fc45e1a2b3c4d5e6f708"}}
	id, err := itemIDParam(ctx)
	require.NoError(t, err)
	require.Equal(t, "64b5fc45e1a2b3c4d5e6f708", id.Hex())
}
