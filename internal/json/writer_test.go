package json

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, Write(w, map[string]string{"token": "abc"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["token"])
}

func TestWriteError(t *testing.T) {
	t.Run("body shape is {error: string}", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteBadRequest(w, "origin does not match registered redirect URI")

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"error": "origin does not match registered redirect URI"}, body)
	})

	t.Run("status helpers", func(t *testing.T) {
		cases := []struct {
			write func(http.ResponseWriter, string)
			want  int
		}{
			{WriteUnauthorized, http.StatusUnauthorized},
			{WriteInternalServerError, http.StatusInternalServerError},
			{WriteNotImplemented, http.StatusNotImplemented},
		}
		for _, tc := range cases {
			w := httptest.NewRecorder()
			tc.write(w, "boom")
			assert.Equal(t, tc.want, w.Code)
		}
	})
}
