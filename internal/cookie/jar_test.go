package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJarMerge(t *testing.T) {
	t.Run("captures set-cookie values in order", func(t *testing.T) {
		w := httptest.NewRecorder()
		http.SetCookie(w, &http.Cookie{Name: "_interaction", Value: "abc", Path: "/interaction/xyz"})
		http.SetCookie(w, &http.Cookie{Name: "_interaction.sig", Value: "sig", Path: "/interaction/xyz"})

		jar := NewJar().Merge(w.Result())
		assert.Equal(t, 2, jar.Len())
		assert.Equal(t, "_interaction=abc; _interaction.sig=sig", jar.Header())
	})

	t.Run("later cookies replace earlier ones without reordering", func(t *testing.T) {
		jar := NewJar().
			With(&http.Cookie{Name: "a", Value: "1"}).
			With(&http.Cookie{Name: "b", Value: "2"}).
			With(&http.Cookie{Name: "a", Value: "3"})

		assert.Equal(t, "a=3; b=2", jar.Header())
	})

	t.Run("paths are re-rooted", func(t *testing.T) {
		jar := NewJar().With(&http.Cookie{Name: "_session", Value: "v", Path: "/interaction/abc"})
		v, ok := jar.Get("_session")
		require.True(t, ok)
		assert.Equal(t, "v", v)

		// the original cookie must not be mutated
		c := &http.Cookie{Name: "x", Value: "y", Path: "/deep"}
		_ = NewJar().With(c)
		assert.Equal(t, "/deep", c.Path)
	})

	t.Run("merge does not mutate the receiver", func(t *testing.T) {
		base := NewJar().With(&http.Cookie{Name: "a", Value: "1"})
		w := httptest.NewRecorder()
		http.SetCookie(w, &http.Cookie{Name: "b", Value: "2"})
		merged := base.Merge(w.Result())

		assert.Equal(t, 1, base.Len())
		assert.Equal(t, 2, merged.Len())
	})
}

func TestJarApply(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://idp.internal/consent", nil)
	jar := NewJar().With(&http.Cookie{Name: "_session", Value: "tok"})
	jar.Apply(req)
	assert.Equal(t, "_session=tok", req.Header.Get("Cookie"))

	empty := NewJar()
	req2 := httptest.NewRequest(http.MethodGet, "http://idp.internal/", nil)
	empty.Apply(req2)
	assert.Empty(t, req2.Header.Get("Cookie"))
}
