// Package fileserver 给聊天平台提供本地图片的临时访问地址.
// 只接受带进程级令牌的本机请求.
package fileserver

import (
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Server 本地图片服务
type Server struct {
	echo  *echo.Echo
	host  string
	port  int
	token string
}

// NewServer creates the artifact file server with a fresh access token.
func NewServer(host string, port int) *Server {
	s := &Server{
		echo:  echo.New(),
		host:  host,
		port:  port,
		token: uuid.NewString(),
	}
	s.echo.HideBanner = true
	s.echo.GET("/image", s.getImage)
	return s
}

// FileURL 生成一张本地图片的带令牌访问地址
func (s *Server) FileURL(path string) string {
	return fmt.Sprintf("http://%s:%d/image?p=%s&t=%s", s.host, s.port, path, s.token)
}

// Start blocks serving until the listener is closed.
func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.host, s.port))
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.echo.Close()
}

func (s *Server) getImage(c echo.Context) error {
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil || (host != "127.0.0.1" && host != "::1") {
		return echo.NewHTTPError(http.StatusUnauthorized, "Nothing.")
	}
	if c.QueryParam("t") != s.token {
		return echo.NewHTTPError(http.StatusUnauthorized, "Nothing.")
	}

	path := c.QueryParam("p")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Nothing.")
	}
	log.Debugf("提供图片: %s", path)
	return c.File(path)
}
