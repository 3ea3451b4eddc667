package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/storefront-go/internal/cli/output"
	"github.com/yndnr/storefront-go/internal/core/domain"
)

func when(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type profileView struct {
	profile *domain.UserProfile
	state   domain.SessionState
}

func (v profileView) Table(wide bool) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	p := v.profile
	t.AddRow("session", v.state.String())
	if p == nil {
		return t
	}
	t.AddRow("username", p.Username)
	t.AddRow("email", p.Email)
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		t.AddRow("name", name)
	}
	t.AddRow("email verified", strconv.FormatBool(p.EmailVerified))
	if wide {
		t.AddRow("id", dash(p.ID.String()))
		t.AddRow("active", strconv.FormatBool(p.IsActive))
		t.AddRow("staff", strconv.FormatBool(p.IsStaff))
		t.AddRow("joined", when(p.DateJoined))
		t.AddRow("last login", when(p.LastLogin))
	}
	return t
}

type servicePageView struct{ page *domain.ServicePage }

func (v servicePageView) Table(wide bool) *output.Table {
	t := output.NewTable("ID", "NAME", "CATEGORY", "INDUSTRY", "PRICE")
	if wide {
		t.Headers = append(t.Headers, "DESCRIPTION")
	}
	for _, s := range v.page.Items {
		row := []string{s.ID.String(), s.Name, dash(s.Category), dash(s.Industry), s.Price.String()}
		if wide {
			row = append(row, dash(s.Description))
		}
		t.AddRow(row...)
	}
	if v.page.TotalPages > 0 {
		page := v.page.Page
		if page < 1 {
			page = 1
		}
		t.AddFooter(fmt.Sprintf("page %d of %d", page, v.page.TotalPages))
	}
	return t
}

type serviceView struct{ svc *domain.Service }

func (v serviceView) Table(bool) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	s := v.svc
	t.AddRow("id", s.ID.String())
	t.AddRow("name", s.Name)
	t.AddRow("category", dash(s.Category))
	t.AddRow("industry", dash(s.Industry))
	t.AddRow("price", s.Price.String())
	t.AddRow("description", dash(s.Description))
	return t
}

type cartView struct{ cart *domain.Cart }

func (v cartView) Table(wide bool) *output.Table {
	t := output.NewTable("SERVICE", "NAME", "PRICE")
	if wide {
		t.Headers = append([]string{"ITEM"}, t.Headers...)
	}
	if v.cart.Empty() {
		t.AddFooter("cart is empty")
		return t
	}
	for _, it := range v.cart.Items {
		row := []string{it.ServiceID.String(), it.ServiceName, it.Price.String()}
		if wide {
			row = append([]string{it.ID.String()}, row...)
		}
		t.AddRow(row...)
	}
	total := []string{"TOTAL", "", dash(v.cart.TotalPrice.String())}
	if wide {
		total = append([]string{""}, total...)
	}
	t.AddFooter(total...)
	return t
}

type ordersView struct{ orders []domain.Order }

func (v ordersView) Table(wide bool) *output.Table {
	t := output.NewTable("ID", "STATUS", "ITEMS", "TOTAL", "ORDERED")
	if wide {
		t.Headers = append(t.Headers, "ACTIONS")
	}
	for _, o := range v.orders {
		row := []string{o.ID.String(), string(o.Status.Normalize()), strconv.Itoa(len(o.Items)), o.TotalPrice.String(), when(o.OrderedAt)}
		if wide {
			row = append(row, actions(o.Status))
		}
		t.AddRow(row...)
	}
	return t
}

func actions(s domain.OrderStatus) string {
	var a []string
	if s.Payable() {
		a = append(a, "pay")
	}
	if s.Cancellable() {
		a = append(a, "cancel")
	}
	if len(a) == 0 {
		return "-"
	}
	return strings.Join(a, ",")
}

type orderView struct{ order *domain.Order }

func (v orderView) Table(bool) *output.Table {
	o := v.order
	t := output.NewTable("SERVICE", "NAME", "PRICE")
	for _, it := range o.Items {
		t.AddRow(it.ServiceID.String(), it.ServiceName, it.Price.String())
	}
	t.AddFooter("ORDER", o.ID.String(), "")
	t.AddFooter("STATUS", string(o.Status.Normalize()), "")
	t.AddFooter("ORDERED", when(o.OrderedAt), "")
	t.AddFooter("TOTAL", "", o.TotalPrice.String())
	return t
}

type checkoutView struct{ res *domain.CheckoutResult }

func (v checkoutView) Table(bool) *output.Table {
	t := output.NewTable("ORDER", "STATUS", "TOTAL")
	status, total := "-", "-"
	if o := v.res.Order; o != nil {
		status, total = string(o.Status.Normalize()), o.TotalPrice.String()
	}
	t.AddRow(v.res.OrderID.String(), status, total)
	return t
}

type paymentView struct{ p *domain.Payment }

func (v paymentView) Table(bool) *output.Table {
	t := output.NewTable("ORDER", "METHOD", "REFERENCE", "STATUS")
	t.AddRow(v.p.OrderID.String(), string(v.p.Method), v.p.ReferenceID, dash(v.p.Status))
	return t
}
