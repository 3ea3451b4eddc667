package command

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/core/service"
)

func servicesCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:    "services",
		Aliases: []string{"svc"},
		Usage:   "browse the service catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list catalog services",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "industry"},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Value: domain.DefaultPageSize},
				},
				Action: func(c *cli.Context) error {
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					page, err := a.Workflow.Services(c.Context, domain.ServiceFilter{
						Category: c.String("category"),
						Industry: c.String("industry"),
						Page:     c.Int("page"),
						Limit:    c.Int("limit"),
					})
					if err != nil {
						return err
					}
					return rt.show(c, page, servicePageView{page: page})
				},
			},
			{
				Name:      "get",
				Usage:     "show one service",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := argOrFlag(c, "", "service id")
					if err != nil {
						return err
					}
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					svc, err := a.Workflow.Service(c.Context, id)
					if err != nil {
						return err
					}
					return rt.show(c, svc, serviceView{svc: svc})
				},
			},
		},
	}
}

func cartCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "manage the cart",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "show the cart",
				Action: func(c *cli.Context) error {
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					return showCart(rt, c, a.Workflow)
				},
			},
			{
				Name:      "add",
				Usage:     "add a service to the cart",
				ArgsUsage: "SERVICE_ID",
				Action: func(c *cli.Context) error {
					id, err := argOrFlag(c, "", "service id")
					if err != nil {
						return err
					}
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					if err := a.Workflow.AddToCart(c.Context, id); err != nil {
						return err
					}
					return showCart(rt, c, a.Workflow)
				},
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "remove a service from the cart",
				ArgsUsage: "SERVICE_ID",
				Action: func(c *cli.Context) error {
					id, err := argOrFlag(c, "", "service id")
					if err != nil {
						return err
					}
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					if err := a.Workflow.RemoveFromCart(c.Context, id); err != nil {
						return err
					}
					return showCart(rt, c, a.Workflow)
				},
			},
			{
				Name:  "checkout",
				Usage: "place an order for the cart contents",
				Action: func(c *cli.Context) error {
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					res, err := a.Workflow.Checkout(c.Context)
					if err != nil {
						return err
					}
					return rt.show(c, res, checkoutView{res: res})
				},
			},
		},
	}
}

// showCart prints the cart after a mutation. The read goes through the
// cache, which the mutation has just invalidated.
func showCart(rt *Runtime, c *cli.Context, w *service.Workflow) error {
	cart, err := w.Cart(c.Context)
	if err != nil {
		return err
	}
	return rt.show(c, cart, cartView{cart: cart})
}

func ordersCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "list, pay and cancel orders",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list orders",
				Action: func(c *cli.Context) error {
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					orders, err := a.Workflow.Orders(c.Context)
					if err != nil {
						return err
					}
					return rt.show(c, orders, ordersView{orders: orders})
				},
			},
			{
				Name:      "get",
				Usage:     "show one order",
				ArgsUsage: "ORDER_ID",
				Action: func(c *cli.Context) error {
					id, err := argOrFlag(c, "", "order id")
					if err != nil {
						return err
					}
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					order, err := a.Workflow.Order(c.Context, id)
					if err != nil {
						return err
					}
					return rt.show(c, order, orderView{order: order})
				},
			},
			{
				Name:      "pay",
				Usage:     "pay an order",
				ArgsUsage: "ORDER_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "method", Aliases: []string{"m"}, Value: string(domain.PaymentCard), Usage: "card, wallet or bank"},
				},
				Action: func(c *cli.Context) error {
					id, err := argOrFlag(c, "", "order id")
					if err != nil {
						return err
					}
					method, err := parseMethod(c.String("method"))
					if err != nil {
						return err
					}
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					payment, err := a.Workflow.PayOrder(c.Context, id, method)
					if err != nil {
						return err
					}
					return rt.show(c, payment, paymentView{p: payment})
				},
			},
			{
				Name:      "cancel",
				Usage:     "cancel a pending or confirmed order",
				ArgsUsage: "ORDER_ID",
				Action: func(c *cli.Context) error {
					id, err := argOrFlag(c, "", "order id")
					if err != nil {
						return err
					}
					a, err := rt.App(c.Context)
					if err != nil {
						return err
					}
					order, err := a.Workflow.CancelOrder(c.Context, id)
					if err != nil {
						return err
					}
					return rt.show(c, order, orderView{order: order})
				},
			},
		},
	}
}

func parseMethod(s string) (domain.PaymentMethod, error) {
	switch m := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case domain.PaymentCard, domain.PaymentWallet, domain.PaymentBank:
		return m, nil
	}
	return "", domain.ErrInvalidArgument.WithDetails("payment method must be card, wallet or bank")
}
