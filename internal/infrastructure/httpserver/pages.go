package httpserver

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var pageFS embed.FS

var pages = template.Must(template.ParseFS(pageFS, "templates/*.html"))

type verifyPageData struct {
	SiteName  string
	UserName  string
	Reason    string
	LoginURL  string
	ResendURL string
}

func (s *Server) renderPage(c echo.Context, code int, name string, data verifyPageData) error {
	data.SiteName = s.config.SiteName
	data.LoginURL = s.config.FrontendURL + "/login"
	data.ResendURL = s.config.FrontendURL + "/resend-verification"

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}

func (s *Server) renderVerifySuccess(c echo.Context, userName string) error {
	return s.renderPage(c, http.StatusOK, "verify_success.html", verifyPageData{UserName: userName})
}

func (s *Server) renderVerifyFailure(c echo.Context, reason string) error {
	return s.renderPage(c, http.StatusBadRequest, "verify_failure.html", verifyPageData{Reason: reason})
}
