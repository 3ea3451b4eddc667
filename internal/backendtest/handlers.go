package backendtest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yndnr/storefront-go/internal/core/domain"
)

type ctxKey struct{}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func detail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		detail(w, http.StatusBadRequest, "JSON parse error")
		return false
	}
	return true
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		s.mu.Lock()
		s.hits = append(s.hits, Hit{
			Method:  r.Method,
			Pattern: pattern,
			Path:    r.URL.Path,
			Bearer:  bearer(r),
			Status:  rec.status,
		})
		s.mu.Unlock()
	})
}

// inject serves failures queued with FailNext. It runs before routing so
// the raw path is matched against the queued pattern.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var hit *failure
		for key, f := range s.failures {
			if f.times <= 0 {
				continue
			}
			method, pattern, _ := cut(key)
			if method == r.Method && matches(pattern, r.URL.Path) {
				f.times--
				hit = f
				break
			}
		}
		s.mu.Unlock()

		if hit != nil {
			detail(w, hit.status, http.StatusText(hit.status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		email, ok := s.access[bearer(r)]
		if ok && !s.users[email].profile.IsActive {
			ok = false
		}
		s.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithEmail(r, email)))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in domain.Credentials
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[in.Email]
	if !ok || u.password != in.Password || !u.profile.IsActive {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
		return
	}
	now := time.Now().UTC().Truncate(time.Second)
	u.profile.LastLogin = &now
	writeJSON(w, http.StatusOK, s.issueLocked(in.Email))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in domain.Registration
	if !decode(w, r, &in) {
		return
	}
	if in.Password1 != in.Password2 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"The two password fields didn't match."},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"email": {"A user is already registered with this e-mail address."},
		})
		return
	}
	s.addUserLocked(in.Username, in.Email, in.Password1)
	writeJSON(w, http.StatusCreated, s.issueLocked(in.Email))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	delete(s.refresh, in.Refresh)
	delete(s.access, bearer(r))
	s.mu.Unlock()

	detail(w, http.StatusOK, "Successfully logged out.")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	delay := s.refreshDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	email, ok := s.refresh[in.Refresh]
	if !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}
	access := s.signLocked(email, "access", s.accessTTL)
	s.access[access] = email
	g := s.refreshGate
	s.refreshGate = nil
	s.mu.Unlock()

	if g != nil {
		g.entered <- struct{}{}
		<-g.release
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccessToken string `json:"access_token"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.AccessToken != GoogleCode {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"Failed to exchange code for access token"},
		})
		return
	}

	const email = "google.user@example.com"
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; !ok {
		s.addUserLocked("google.user", email, "")
	}
	writeJSON(w, http.StatusOK, s.issueLocked(email))
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	s.resent = append(s.resent, in.Email)
	s.mu.Unlock()
	detail(w, http.StatusOK, "ok")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.users[emailFrom(r)].profile
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r)
	u := s.users[email]
	if u.profile.Username != chi.URLParam(r, "username") {
		detail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	u.profile.IsActive = false
	for tok, owner := range s.access {
		if owner == email {
			delete(s.access, tok)
		}
	}
	for tok, owner := range s.refresh {
		if owner == email {
			delete(s.refresh, tok)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := domain.ServiceFilter{Page: page, Limit: limit}.Normalized()

	s.mu.Lock()
	var matched []domain.Service
	for _, svc := range s.services {
		if c := q.Get("category"); c != "" && svc.Category != c {
			continue
		}
		if i := q.Get("industry"); i != "" && svc.Industry != i {
			continue
		}
		matched = append(matched, svc)
	}
	s.mu.Unlock()

	out := domain.ServicePage{
		Items:      []domain.Service{},
		Page:       f.Page,
		TotalPages: int(math.Ceil(float64(len(matched)) / float64(f.Limit))),
	}
	start := (f.Page - 1) * f.Limit
	if start < len(matched) {
		end := min(start+f.Limit, len(matched))
		out.Items = matched[start:end]
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Service not found"})
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) service(id string) (domain.Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if string(svc.ID) == id {
			return svc, true
		}
	}
	return domain.Service{}, false
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.cartLocked(emailFrom(r)))
}

func (s *Server) cartLocked(email string) domain.Cart {
	u := s.users[email]
	items := append([]domain.CartItem{}, u.cart...)
	return domain.Cart{
		ID:         u.profile.ID,
		Items:      items,
		TotalPrice: total(items, func(it domain.CartItem) domain.Amount { return it.Price }),
	}
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ServiceID string `json:"service_id"`
	}
	if !decode(w, r, &in) {
		return
	}
	svc, ok := s.service(in.ServiceID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Service not found"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[emailFrom(r)]
	for _, it := range u.cart {
		if it.ServiceID == svc.ID {
			detail(w, http.StatusBadRequest, "Service already in cart.")
			return
		}
	}
	s.seq++
	u.cart = append(u.cart, domain.CartItem{
		ID:          domain.ID(strconv.Itoa(s.seq)),
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Price:       svc.Price,
	})
	writeJSON(w, http.StatusCreated, s.cartLocked(emailFrom(r)))
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id := domain.ID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[emailFrom(r)]
	for i, it := range u.cart {
		if it.ServiceID == id {
			u.cart = append(u.cart[:i], u.cart[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	detail(w, http.StatusNotFound, "Service not in cart.")
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := emailFrom(r)
	u := s.users[email]
	if len(u.cart) == 0 {
		detail(w, http.StatusBadRequest, "Cart is empty.")
		return
	}

	s.nextOrder++
	now := time.Now().UTC().Truncate(time.Second)
	o := &domain.Order{
		ID:        domain.ID(strconv.Itoa(s.nextOrder)),
		User:      u.profile.ID,
		Status:    domain.OrderPending,
		OrderedAt: &now,
	}
	for _, it := range u.cart {
		o.Items = append(o.Items, domain.OrderItem{
			ServiceID:   it.ServiceID,
			ServiceName: it.ServiceName,
			Price:       it.Price,
		})
	}
	o.TotalPrice = total(o.Items, func(it domain.OrderItem) domain.Amount { return it.Price })
	u.cart = nil
	s.orders[email] = append(s.orders[email], o)

	copied := *o
	writeJSON(w, http.StatusCreated, domain.CheckoutResult{OrderID: o.ID, Order: &copied})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders[emailFrom(r)]))
	for _, o := range s.orders[emailFrom(r)] {
		out = append(out, *o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orderLocked(r)
	if o == nil {
		detail(w, http.StatusNotFound, "No Order matches the given query.")
		return
	}
	writeJSON(w, http.StatusOK, *o)
}

func (s *Server) orderLocked(r *http.Request) *domain.Order {
	id := domain.ID(chi.URLParam(r, "id"))
	for _, o := range s.orders[emailFrom(r)] {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var in domain.Payment
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orderLocked(r)
	switch {
	case o == nil:
		detail(w, http.StatusNotFound, "No Order matches the given query.")
		return
	case in.ReferenceID == "" || in.Method == "":
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"reference_id": {"This field is required."},
		})
		return
	case s.payments[in.ReferenceID]:
		detail(w, http.StatusConflict, "Duplicate payment reference.")
		return
	case !o.Status.Payable():
		detail(w, http.StatusBadRequest, fmt.Sprintf("Order is %s.", o.Status))
		return
	}

	s.payments[in.ReferenceID] = true
	o.Status = domain.OrderPaid
	writeJSON(w, http.StatusOK, domain.Payment{
		OrderID:     o.ID,
		Method:      in.Method,
		ReferenceID: in.ReferenceID,
		Status:      string(domain.OrderPaid),
	})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status domain.OrderStatus `json:"status"`
	}
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orderLocked(r)
	if o == nil {
		detail(w, http.StatusNotFound, "No Order matches the given query.")
		return
	}
	if !domain.CanTransition(o.Status, in.Status) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"status": {fmt.Sprintf("Cannot change status from %s to %s.", o.Status, in.Status)},
		})
		return
	}
	o.Status = in.Status.Normalize()
	writeJSON(w, http.StatusOK, *o)
}

func total[T any](items []T, price func(T) domain.Amount) domain.Amount {
	var cents int64
	for _, it := range items {
		f, _ := strconv.ParseFloat(string(price(it)), 64)
		cents += int64(math.Round(f * 100))
	}
	return domain.Amount(fmt.Sprintf("%d.%02d", cents/100, cents%100))
}
