package web

import (
	"html/template"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Humphrey-He/propview/internal/controller"
	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/format"
	"github.com/Humphrey-He/propview/pkg/listing"
)

// Layout is the data every page shares with the header template.
type Layout struct {
	Title  string
	User   *listing.User
	Notice string
}

type listPage struct {
	Layout
	View     controller.ListView
	Query    string
	Location string
	Price    string
}

type detailPage struct {
	Layout
	ID      int64
	Listing *listing.Listing
	Error   string
	Enquiry listing.Enquiry
	Fields  perrors.FieldErrors
	Sent    string
}

type adminPage struct {
	Layout
	State  controller.AdminState
	Form   listing.Payload
	EditID int64
	Fields perrors.FieldErrors
	Error  string
}

type authPage struct {
	Layout
	Signup bool
	Creds  listing.Credentials
	Req    listing.SignupRequest
	Error  string
	Fields perrors.FieldErrors
}

type errorPage struct {
	Layout
	Message string
}

func (s *Server) display() *format.Formatter {
	return s.formatter.Load()
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"price":       func(p float64) string { return s.display().Price(p) },
		"area":        func(a string) string { return s.display().Area(a) },
		"phone":       func(p string) string { return s.display().Phone(p) },
		"date":        func(d string) string { return s.display().Date(d) },
		"count":       func(n *int) string { return s.display().Count(n) },
		"initials":    format.Initials,
		"image":       func(l listing.Listing) string { return l.Image(s.placeholder) },
		"placeholder": func() string { return s.placeholder },
		"facet":       listing.FacetOf,
		"optint": func(n *int) string {
			if n == nil {
				return ""
			}
			return strconv.Itoa(*n)
		},
		"money": func(p float64) string {
			if p == 0 {
				return ""
			}
			return strconv.FormatFloat(p, 'f', -1, 64)
		},
		"selected": func(a, b string) bool { return a == b },
	}
}

// layout builds the shared page data from the visitor's auth controller.
// A pending auth notice is shown once.
func (s *Server) layout(c *gin.Context, title string) Layout {
	auth := visitorOf(c).Auth
	st := auth.State()
	if st.Notice != "" {
		auth.ClearMessages()
	}
	return Layout{Title: title, User: auth.CurrentUser(), Notice: st.Notice}
}

func (s *Server) render(c *gin.Context, status int, name string, data any) {
	c.HTML(status, name, data)
	if len(c.Errors) > 0 {
		s.logger.Error("render failed", zap.String("template", name), zap.String("errors", c.Errors.String()))
	}
}
