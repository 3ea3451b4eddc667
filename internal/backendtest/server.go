package backendtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/storefront-go/internal/core/domain"
)

// GoogleCode is the OAuth code the fake Google exchange accepts.
const GoogleCode = "google-test-code"

var signingKey = []byte("backendtest")

// Hit is one recorded request.
type Hit struct {
	Method  string
	Pattern string
	Path    string
	Bearer  string
	Status  int
}

type user struct {
	profile  domain.UserProfile
	password string
	cart     []domain.CartItem
}

type failure struct {
	status int
	times  int
}

// Server is a fake storefront backend.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	accessTTL    time.Duration
	refreshDelay time.Duration
	refreshGate  *gate
	users        map[string]*user // by email
	access       map[string]string
	refresh      map[string]string
	services     []domain.Service
	orders       map[string][]*domain.Order // by email
	payments     map[string]bool            // reference ids seen
	resent       []string
	failures     map[string]*failure
	hits         []Hit
	seq          int
	nextOrder    int
}

// New starts a server with a small catalog and closes it when t ends.
func New(t testing.TB) *Server {
	s := &Server{
		accessTTL: 5 * time.Minute,
		users:     make(map[string]*user),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		orders:    make(map[string][]*domain.Order),
		payments:  make(map[string]bool),
		failures:  make(map[string]*failure),
		nextOrder: 100,
	}
	s.services = []domain.Service{
		{ID: "svc-logo", Name: "Logo design", Category: "design", Industry: "retail", Price: "49.99"},
		{ID: "svc-site", Name: "Landing page", Category: "web", Industry: "retail", Price: "199.00"},
		{ID: "svc-seo", Name: "SEO audit", Category: "marketing", Industry: "saas", Price: "89.50"},
	}
	s.Server = httptest.NewServer(s.router())
	if t != nil {
		t.Cleanup(s.Close)
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.inject)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/registration", s.handleRegister)
	r.Post("/auth/logout", s.handleLogout)
	r.Post("/auth/jwt/refresh", s.handleRefresh)
	r.Post("/auth/social/google", s.handleGoogle)
	r.Post("/registration/resend-email", s.handleResend)

	r.Get("/services", s.handleServices)
	r.Get("/services/{id}", s.handleService)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/auth/user", s.handleProfile)
		r.Delete("/users/deactivate/{username}", s.handleDeactivate)

		r.Get("/cart", s.handleCart)
		r.Post("/cart", s.handleAddToCart)
		r.Delete("/cart/{id}", s.handleRemoveFromCart)

		r.Post("/orders/checkout", s.handleCheckout)
		r.Get("/orders", s.handleOrders)
		r.Get("/orders/{id}", s.handleOrder)
		r.Post("/orders/{id}/pay", s.handlePay)
		r.Patch("/orders/{id}/update_status", s.handleUpdateStatus)
	})

	return r
}

// AddUser registers an active, verified account.
func (s *Server) AddUser(username, email, password string) domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, email, password)
}

func (s *Server) addUserLocked(username, email, password string) domain.UserProfile {
	s.seq++
	now := time.Now().UTC().Truncate(time.Second)
	u := &user{
		password: password,
		profile: domain.UserProfile{
			ID:            domain.ID(strconv.Itoa(s.seq)),
			Username:      username,
			Email:         email,
			EmailVerified: true,
			IsActive:      true,
			DateJoined:    &now,
		},
	}
	s.users[email] = u
	return u.profile
}

// SetAccessTTL sets the lifetime written into access tokens issued from
// now on.
func (s *Server) SetAccessTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTTL = d
}

// SetRefreshDelay makes the refresh endpoint wait d before answering.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

type gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// HoldRefresh makes the next refresh request issue its access token and
// then wait before answering. entered receives once the token is issued;
// release lets the response go out.
func (s *Server) HoldRefresh() (entered <-chan struct{}, release func()) {
	g := &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s.mu.Lock()
	s.refreshGate = g
	s.mu.Unlock()
	return g.entered, func() { g.once.Do(func() { close(g.release) }) }
}

// AddService appends a catalog entry.
func (s *Server) AddService(svc domain.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, svc)
}

// SetOrderStatus forces the status of order id, as the back office would.
func (s *Server) SetOrderStatus(id string, status domain.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range s.orders {
		for _, o := range list {
			if string(o.ID) == id {
				o.Status = status
			}
		}
	}
}

// ExpireAccess makes every issued access token invalid, as if they had all
// timed out. Refresh tokens stay valid.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.access {
		delete(s.access, k)
	}
}

// RevokeRefresh invalidates every refresh token.
func (s *Server) RevokeRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.refresh {
		delete(s.refresh, k)
	}
}

// FailNext makes the next n requests matching method and route pattern
// fail with status.
func (s *Server) FailNext(method, pattern string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+pattern] = &failure{status: status, times: n}
}

// Hits returns the recorded requests.
func (s *Server) Hits() []Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Hit(nil), s.hits...)
}

// Calls counts recorded requests for method and route pattern.
func (s *Server) Calls(method, pattern string) int {
	n := 0
	for _, h := range s.Hits() {
		if h.Method == method && h.Pattern == pattern {
			n++
		}
	}
	return n
}

// RefreshCalls counts refresh requests.
func (s *Server) RefreshCalls() int {
	return s.Calls(http.MethodPost, "/auth/jwt/refresh")
}

// ResentEmails lists addresses passed to the resend endpoint.
func (s *Server) ResentEmails() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resent...)
}

// issueLocked mints a token pair for email.
func (s *Server) issueLocked(email string) domain.LoginResult {
	access := s.signLocked(email, "access", s.accessTTL)
	refresh := s.signLocked(email, "refresh", 24*time.Hour)
	s.access[access] = email
	s.refresh[refresh] = email
	p := s.users[email].profile
	return domain.LoginResult{Access: access, Refresh: refresh, User: &p}
}

func (s *Server) signLocked(email, kind string, ttl time.Duration) string {
	s.seq++
	claims := jwt.MapClaims{
		"sub":        email,
		"token_type": kind,
		"jti":        strconv.Itoa(s.seq),
		"exp":        time.Now().Add(ttl).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("backendtest: sign token: %v", err))
	}
	return tok
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
