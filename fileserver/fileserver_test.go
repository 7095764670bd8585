package fileserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(s *Server, target, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestGetImage(t *testing.T) {
	s := NewServer("127.0.0.1", 8413)

	img := filepath.Join(t.TempDir(), "preview.png")
	require.NoError(t, os.WriteFile(img, []byte("png-bytes"), 0644))

	// 非本机来源一律拒绝
	rec := serve(s, "/image?p="+img+"&t="+s.token, "10.0.0.5:4321")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 令牌不对也拒绝
	rec = serve(s, "/image?p="+img+"&t=wrong", "127.0.0.1:4321")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 缺路径
	rec = serve(s, "/image?t="+s.token, "127.0.0.1:4321")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 本机 + 正确令牌
	rec = serve(s, "/image?p="+img+"&t="+s.token, "127.0.0.1:4321")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestFileURLCarriesToken(t *testing.T) {
	s := NewServer("127.0.0.1", 8413)
	url := s.FileURL("/data/1/preview.png")
	assert.Contains(t, url, "http://127.0.0.1:8413/image?p=/data/1/preview.png")
	assert.Contains(t, url, "t="+s.token)
}
