package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Humphrey-He/propview/internal/controller"
	perrors "github.com/Humphrey-He/propview/pkg/errors"
	"github.com/Humphrey-He/propview/pkg/filter"
	"github.com/Humphrey-He/propview/pkg/listing"
)

// listPage refreshes the snapshot and renders it filtered by the query.
// A failed refresh still renders the last good snapshot under the banner.
func (s *Server) listPage(c *gin.Context) {
	page := listPage{
		Layout:   s.layout(c, "Properties"),
		Query:    c.Query("q"),
		Location: c.Query("location"),
		Price:    c.Query("price"),
	}

	_ = s.ctl.List.Refresh(c.Request.Context())

	crit, err := filter.ParseCriteria(page.Query, page.Location, page.Price)
	if err != nil {
		view, _ := s.ctl.List.ViewWith(filter.Criteria{})
		view.Error = err.Error()
		page.View = view
		page.Price = ""
		s.render(c, http.StatusBadRequest, "list", page)
		return
	}

	view, err := s.ctl.List.ViewWith(crit)
	if err != nil {
		s.render(c, http.StatusBadRequest, "error", errorPage{Layout: page.Layout, Message: err.Error()})
		return
	}
	page.View = view
	s.render(c, http.StatusOK, "list", page)
}

// msgBadForm is shown when a form body cannot be read at all.
const msgBadForm = "The form could not be read. Please try again."

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// detailStatus maps a load failure to the page status.
func detailStatus(err error) int {
	if perrors.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (s *Server) detailPage(c *gin.Context) {
	page := detailPage{Layout: s.layout(c, "Property")}
	id, ok := parseID(c)
	if !ok {
		page.Error = controller.MsgPropertyNotFound
		s.render(c, http.StatusNotFound, "detail", page)
		return
	}
	page.ID = id

	l, err := s.ctl.Detail.Load(c.Request.Context(), id)
	if err != nil {
		page.Error = controller.DetailMessage(err)
		s.render(c, detailStatus(err), "detail", page)
		return
	}
	page.Listing = &l
	page.Title = l.Title
	s.render(c, http.StatusOK, "detail", page)
}

func (s *Server) enquire(c *gin.Context) {
	page := detailPage{Layout: s.layout(c, "Property")}
	id, ok := parseID(c)
	if !ok {
		page.Error = controller.MsgPropertyNotFound
		s.render(c, http.StatusNotFound, "detail", page)
		return
	}
	page.ID = id

	var e listing.Enquiry
	if err := c.ShouldBind(&e); err != nil {
		_ = c.Error(err)
		page.Error = msgBadForm
		s.render(c, http.StatusBadRequest, "detail", page)
		return
	}
	page.Enquiry = e

	msg, err := s.ctl.Detail.Enquire(c.Request.Context(), id, e)
	if l, lerr := s.ctl.Detail.Load(c.Request.Context(), id); lerr == nil {
		page.Listing = &l
		page.Title = l.Title
	}
	switch {
	case err == nil:
		page.Sent = msg
		page.Enquiry = listing.Enquiry{}
		s.render(c, http.StatusOK, "detail", page)
	case perrors.IsValidation(err):
		page.Fields = perrors.Fields(err)
		s.render(c, http.StatusBadRequest, "detail", page)
	default:
		page.Error = controller.DetailMessage(err)
		s.render(c, detailStatus(err), "detail", page)
	}
}

// adminPage verifies the visitor's session with the backend and loads the
// listings concurrently; the page fails if either does.
func (s *Server) adminPage(c *gin.Context) {
	v := visitorOf(c)
	if v.Auth.CurrentUser() == nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	ctx := c.Request.Context()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := v.Auth.Restore(gctx)
		return err
	})
	g.Go(func() error {
		return v.Admin.Refresh(gctx)
	})
	err := g.Wait()

	if v.Auth.CurrentUser() == nil {
		s.logger.Info("admin session expired", zap.Error(err))
		s.forgetVisitor(c, v)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	page := s.adminView(c)
	if id, ok := parseEditID(c.Query("edit")); ok {
		for _, l := range page.State.Listings {
			if l.ID == id {
				page.EditID = id
				page.Form = listing.FromListing(l)
				break
			}
		}
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	s.render(c, status, "admin", page)
}

func parseEditID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) adminView(c *gin.Context) adminPage {
	st := visitorOf(c).Admin.State()
	return adminPage{
		Layout: s.layout(c, "Admin"),
		State:  st,
		Fields: st.Fields,
		Error:  st.Error,
	}
}

// payloadFromForm reads the listing form. Numeric fields that do not parse
// become field errors; empty optional counts stay nil.
func payloadFromForm(c *gin.Context) (listing.Payload, perrors.FieldErrors) {
	fe := perrors.FieldErrors{}
	p := listing.Payload{
		Title:       c.PostForm("title"),
		Location:    c.PostForm("location"),
		ImageURL:    c.PostForm("imageUrl"),
		Description: c.PostForm("description"),
		Area:        strings.TrimSpace(c.PostForm("area")),
	}

	if raw := strings.TrimSpace(c.PostForm("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fe["price"] = "Price must be a number"
		}
		p.Price = price
	}

	optional := func(field string) *int {
		raw := strings.TrimSpace(c.PostForm(field))
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fe[field] = "Must be a whole number"
			return nil
		}
		return &n
	}
	p.Bedrooms = optional("bedrooms")
	p.Bathrooms = optional("bathrooms")
	return p, fe
}

// mutate runs an admin action and re-renders the panel with its outcome.
func (s *Server) mutate(c *gin.Context, form listing.Payload, editID int64, err error) {
	if perrors.IsForbidden(err) {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	page := s.adminView(c)
	status := http.StatusOK
	switch {
	case err == nil:
	case perrors.IsValidation(err):
		status = http.StatusBadRequest
		page.Form, page.EditID = form, editID
	case perrors.IsNotFound(err):
		status = http.StatusNotFound
	default:
		status = http.StatusBadGateway
		page.Form, page.EditID = form, editID
	}
	s.render(c, status, "admin", page)
}

func (s *Server) createListing(c *gin.Context) {
	p, fe := payloadFromForm(c)
	if len(fe) > 0 {
		s.formError(c, p, 0, fe, controller.MsgAddFailed)
		return
	}
	_, err := visitorOf(c).Admin.Create(c.Request.Context(), p)
	s.mutate(c, p, 0, err)
}

func (s *Server) updateListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	p, fe := payloadFromForm(c)
	if len(fe) > 0 {
		s.formError(c, p, id, fe, controller.MsgUpdateFailed)
		return
	}
	_, err := visitorOf(c).Admin.Update(c.Request.Context(), id, p)
	s.mutate(c, p, id, err)
}

func (s *Server) deleteListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	err := visitorOf(c).Admin.Delete(c.Request.Context(), id)
	s.mutate(c, listing.Payload{}, 0, err)
}

// formError renders form parse failures the same way validation failures are.
func (s *Server) formError(c *gin.Context, p listing.Payload, editID int64, fe perrors.FieldErrors, msg string) {
	if visitorOf(c).Auth.CurrentUser() == nil {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	page := s.adminView(c)
	page.Form, page.EditID, page.Fields, page.Error = p, editID, fe, msg
	s.render(c, http.StatusBadRequest, "admin", page)
}

func (s *Server) loginForm(c *gin.Context) {
	s.render(c, http.StatusOK, "auth", authPage{Layout: s.layout(c, "Login")})
}

// login authenticates into a fresh visitor so a session id is never reused
// across logins. On failure the request keeps its original visitor.
func (s *Server) login(c *gin.Context) {
	prev := visitorOf(c)
	var creds listing.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		_ = c.Error(err)
		s.render(c, http.StatusBadRequest, "auth", authPage{Layout: s.layout(c, "Login"), Error: msgBadForm})
		return
	}

	v := s.ctl.Sessions.Anonymous()
	bindVisitor(c, v)
	if _, err := v.Auth.Login(c.Request.Context(), creds); err != nil {
		st := v.Auth.State()
		bindVisitor(c, prev)
		page := authPage{Layout: s.layout(c, "Login"), Creds: listing.Credentials{Email: creds.Email}, Error: st.Error, Fields: st.Fields}
		s.render(c, authStatus(err), "auth", page)
		return
	}
	if prev.ID != "" {
		s.ctl.Sessions.Drop(prev.ID)
	}
	s.keepVisitor(c, v)
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (s *Server) signupForm(c *gin.Context) {
	s.render(c, http.StatusOK, "auth", authPage{Layout: s.layout(c, "Sign up"), Signup: true})
}

func (s *Server) signup(c *gin.Context) {
	v := visitorOf(c)
	var req listing.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(err)
		s.render(c, http.StatusBadRequest, "auth", authPage{Layout: s.layout(c, "Sign up"), Signup: true, Error: msgBadForm})
		return
	}
	if _, err := v.Auth.Signup(c.Request.Context(), req); err != nil {
		st := v.Auth.State()
		req.Password = ""
		page := authPage{Layout: s.layout(c, "Sign up"), Signup: true, Req: req, Error: st.Error, Fields: st.Fields}
		s.render(c, authStatus(err), "auth", page)
		return
	}
	// Keep the visitor so the notice survives the redirect.
	if v.ID == "" {
		s.keepVisitor(c, v)
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

func authStatus(err error) int {
	switch {
	case perrors.IsValidation(err):
		return http.StatusBadRequest
	case perrors.IsNetwork(err):
		return http.StatusBadGateway
	default:
		return http.StatusUnauthorized
	}
}

func (s *Server) logout(c *gin.Context) {
	v := visitorOf(c)
	_ = v.Auth.Logout(c.Request.Context())
	s.forgetVisitor(c, v)
	c.Redirect(http.StatusSeeOther, "/")
}

// status checks the backend and reports the badge state as JSON.
func (s *Server) status(c *gin.Context) {
	st := s.ctl.Status.Check(c.Request.Context())
	code := http.StatusOK
	if st.Status != controller.StatusConnected {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, st)
}
