package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/handler"
	"github.com/iliyamo/bookmyseat/internal/middleware"
	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/payment"
	"github.com/iliyamo/bookmyseat/internal/repository"
	"github.com/iliyamo/bookmyseat/internal/service"
	"github.com/iliyamo/bookmyseat/internal/testutil"
	"github.com/iliyamo/bookmyseat/internal/utils"
)

const secret = "router-secret"

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
	args := m.Called(req)
	return args.Get(0).(payment.Session), args.Error(1)
}

func (m *mockGateway) GetSession(ctx context.Context, id string) (payment.Session, error) {
	args := m.Called(id)
	return args.Get(0).(payment.Session), args.Error(1)
}

type app struct {
	e       *echo.Echo
	gw      *mockGateway
	movies  *repository.MovieRepo
	alice   uint64
	bob     uint64
	admin   uint64
	movie   uint64
	theater uint64
	seats   []uint64
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := testutil.NewDB(t)
	clock := testutil.NewClock(time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC))

	users := repository.NewUserRepo(db)
	movies := repository.NewMovieRepo(db)
	theaters := repository.NewTheaterRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)

	a := &app{gw: new(mockGateway), movies: movies}
	a.alice = testutil.InsertUser(t, db, "alice@example.com", model.RoleCustomer)
	a.bob = testutil.InsertUser(t, db, "bob@example.com", model.RoleCustomer)
	a.admin = testutil.InsertUser(t, db, "admin@example.com", model.RoleAdmin)

	m := &model.Movie{Name: "Dune", Genre: "Action", Language: "English"}
	require.NoError(t, movies.Create(context.Background(), m))
	a.movie = m.ID
	a.theater = testutil.InsertTheater(t, db, a.movie, "Screen 1", time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC))
	a.seats = testutil.InsertSeats(t, db, a.theater, 4)

	ttl := 5 * time.Minute
	res := service.NewReservationService(db, seats, theaters, clock, ttl)
	checkout := service.NewCheckoutService(db, service.Repos{
		Movies: movies, Theaters: theaters, Seats: seats, Bookings: bookings, Users: users,
	}, a.gw, nil, config.CheckoutConfig{Currency: "usd", UnitAmountCents: 1000}, clock, ttl)

	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	e := echo.New()
	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)), secret)
	RegisterBrowse(e, handler.NewBrowseHandler(movies, theaters), nil)
	RegisterCustomer(e, Deps{
		JWTSecret: secret,
		LoginURL:  "/login/",
		Bookings:  handler.NewBookingHandler(res, bookings),
		Checkout:  handler.NewCheckoutHandler(checkout, "http://shop.test"),
		Dashboard: handler.NewDashboardHandler(bookings),
	})
	a.e = e
	return a
}

func (a *app) do(t *testing.T, method, target string, user uint64, role string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != 0 {
		at, err := utils.NewAccessToken(secret, user, role, 15)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+at.Token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) seatsPath() string {
	return "/theater/" + strconv.FormatUint(a.theater, 10) + "/seats/book/"
}

func seatForm(ids ...uint64) string {
	v := url.Values{}
	for _, id := range ids {
		v.Add("seats", strconv.FormatUint(id, 10))
	}
	return v.Encode()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/healthz", 0, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestBrowse(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.movies.Create(context.Background(), &model.Movie{Name: "Past Lives", Genre: "Drama"}))

	rec := a.do(t, http.MethodGet, "/?genre=Drama", 0, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["total"])
	assert.Equal(t, "Past Lives", body["items"].([]any)[0].(map[string]any)["name"])

	rec = a.do(t, http.MethodGet, "/?search=DUNE", 0, "", "")
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	for _, q := range []string{"/?genre=Western", "/?language=French"} {
		rec = a.do(t, http.MethodGet, q, 0, "", "")
		require.Equal(t, http.StatusOK, rec.Code, q)
		body = decode(t, rec)
		assert.EqualValues(t, 0, body["total"], q)
		assert.Empty(t, body["items"], q)
	}

	rec = a.do(t, http.MethodGet, "/"+strconv.FormatUint(a.movie, 10)+"/theaters/", 0, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Dune", body["movie"].(map[string]any)["name"])
	assert.Len(t, body["theaters"], 1)

	rec = a.do(t, http.MethodGet, "/999/theaters/", 0, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeatRoutesRedirectAnonymousToLogin(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, a.seatsPath(), 0, "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next="+url.QueryEscape(a.seatsPath()), rec.Header().Get(echo.HeaderLocation))
}

func TestReserveRedirectsToCheckoutAndReportsConflicts(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, a.seatsPath(), a.alice, model.RoleCustomer, seatForm(a.seats[0], a.seats[1]))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/checkout/"+strconv.FormatUint(a.theater, 10)+"/", rec.Header().Get(echo.HeaderLocation))

	rec = a.do(t, http.MethodPost, a.seatsPath(), a.bob, model.RoleCustomer, seatForm(a.seats[1], a.seats[2]))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []any{"A2"}, decode(t, rec)["unavailable"])

	rec = a.do(t, http.MethodGet, a.seatsPath(), a.alice, model.RoleCustomer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["can_pay"])
	assert.EqualValues(t, 2, body["held_by_you"])

	// bob's failed batch left A3 free
	rec = a.do(t, http.MethodGet, a.seatsPath(), a.bob, model.RoleCustomer, "")
	seats := decode(t, rec)["seats"].([]any)
	assert.Equal(t, model.SeatFree, seats[2].(map[string]any)["status"])

	rec = a.do(t, http.MethodPost, a.seatsPath(), a.alice, model.RoleCustomer, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodDelete, a.seatsPath(), a.alice, model.RoleCustomer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["released"])
}

func TestCheckoutFlow(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, a.seatsPath(), a.alice, model.RoleCustomer, seatForm(a.seats[0], a.seats[1]))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	a.gw.On("CreateSession", mock.MatchedBy(func(r payment.SessionRequest) bool {
		return r.Quantity == 2 && strings.HasPrefix(r.SuccessURL, "http://shop.test/payment-success/")
	})).Return(payment.Session{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil).Once()
	rec = a.do(t, http.MethodGet, "/checkout/"+strconv.FormatUint(a.theater, 10)+"/", a.alice, model.RoleCustomer, "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "https://pay.test/cs_1", rec.Header().Get(echo.HeaderLocation))

	a.gw.On("GetSession", "cs_1").Return(payment.Session{
		ID:              "cs_1",
		PaymentStatus:   payment.StatusPaid,
		PaymentIntentID: "pi_123",
		Metadata: map[string]string{
			"user_id":    strconv.FormatUint(a.alice, 10),
			"theater_id": strconv.FormatUint(a.theater, 10),
		},
	}, nil)
	rec = a.do(t, http.MethodGet, "/payment-success/?session_id=cs_1", a.alice, model.RoleCustomer, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, service.StatusConfirmed, decode(t, rec)["status"])

	rec = a.do(t, http.MethodGet, "/payment-success/?session_id=cs_1", a.alice, model.RoleCustomer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.StatusAlreadyConfirmed, decode(t, rec)["status"])

	rec = a.do(t, http.MethodGet, "/payment-success/", a.alice, model.RoleCustomer, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = a.do(t, http.MethodGet, "/v1/my-bookings", a.alice, model.RoleCustomer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 2)

	// tokens carrying a role the app does not know are refused
	rec = a.do(t, http.MethodGet, "/v1/my-bookings", a.alice, "GUEST", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, "/admin-dashboard/", a.alice, model.RoleCustomer, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = a.do(t, http.MethodGet, "/admin-dashboard/", a.admin, model.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 20, body["total_revenue"])
	assert.EqualValues(t, 2000, body["total_revenue_cents"])

	a.gw.AssertExpectations(t)
}

func TestCheckoutWithoutHoldsGoesHome(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/checkout/"+strconv.FormatUint(a.theater, 10)+"/", a.bob, model.RoleCustomer, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	a.gw.AssertNotCalled(t, "CreateSession", mock.Anything)
}

func TestPaymentCancel(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/payment-cancel/", a.bob, model.RoleCustomer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode(t, rec)["status"])
}

func TestRegisterCookieOpensSeatMap(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register",
		strings.NewReader(`{"email":"Carol@Example.com","password":"pw123456"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, model.RoleCustomer, body["user"].(map[string]any)["role"])
	assert.Equal(t, "carol@example.com", body["user"].(map[string]any)["email"])

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AccessCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req = httptest.NewRequest(http.MethodGet, a.seatsPath(), nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// duplicate email
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/register",
		strings.NewReader(`{"email":"carol@example.com","password":"other"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginForm(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register",
		strings.NewReader(`{"email":"dave@example.com","password":"pw123456"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	a.e.ServeHTTP(httptest.NewRecorder(), req)

	form := url.Values{"email": {"dave@example.com"}, "password": {"pw123456"}}
	req = httptest.NewRequest(http.MethodPost, "/login/?next=%2Fcheckout%2F1%2F", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/checkout/1/", decode(t, rec)["next"])

	form.Set("password", "wrong")
	req = httptest.NewRequest(http.MethodPost, "/login/", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
