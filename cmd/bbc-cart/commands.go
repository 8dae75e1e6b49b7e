package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/Ratio1/bbc_cart_go/pkg/cart"
	"github.com/Ratio1/bbc_cart_go/pkg/checkout"
)

func showCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "print the cart",
		Action: func(c *cli.Context) error {
			printCart(c.App.Writer, s.store)
			return nil
		},
	}
}

func addCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "add a product to the cart",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "size", Usage: "size option, empty for products without sizes"},
			&cli.StringFlag{Name: "price", Usage: "unit price of the chosen size", Required: true},
			&cli.IntFlag{Name: "qty", Value: 1, Usage: "quantity, values below 1 count as 1"},
			&cli.StringSliceFlag{Name: "addon", Usage: "add-on as NAME=PRICE, repeatable"},
		},
		Action: func(c *cli.Context) error {
			name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if name == "" {
				return errors.New("product name is required")
			}
			price, err := parseAmount(c.String("price"))
			if err != nil {
				return errors.Wrap(err, "price")
			}
			sel := cart.Selection{
				Name:      name,
				Size:      strings.TrimSpace(c.String("size")),
				UnitPrice: price,
				Qty:       c.Int("qty"),
			}
			for _, raw := range c.StringSlice("addon") {
				a, err := parseAddOn(raw)
				if err != nil {
					return err
				}
				sel.AddOns = append(sel.AddOns, a)
			}

			line, err := s.store.AddItem(c.Context, sel)
			if err != nil {
				return errors.Wrap(err, "add item")
			}
			fmt.Fprintf(c.App.Writer, "%s - %s\n", cart.Describe(line), cart.FormatPeso(line.Total()))
			fmt.Fprintf(c.App.Writer, "key: %s\n", line.Key)
			return nil
		},
	}
}

func quantityCommand(s *session, name, usage string, delta int) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return errors.New("line key is required, see `bbc-cart show`")
			}
			if _, ok := s.store.Find(key); !ok {
				fmt.Fprintf(c.App.Writer, "no line with key %q\n", key)
				return nil
			}
			if err := s.store.ChangeQuantity(c.Context, key, delta); err != nil {
				return errors.Wrap(err, "change quantity")
			}
			printCart(c.App.Writer, s.store)
			return nil
		},
	}
}

func clearCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "remove every line from the cart",
		Action: func(c *cli.Context) error {
			if err := s.store.Clear(c.Context); err != nil {
				return errors.Wrap(err, "clear cart")
			}
			fmt.Fprintln(c.App.Writer, "cart cleared")
			return nil
		},
	}
}

func payCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:      "pay",
		Usage:     "choose the payment method (gcash or cod)",
		ArgsUsage: "METHOD",
		Action: func(c *cli.Context) error {
			method, err := checkout.ParsePaymentMethod(c.Args().First())
			if err != nil {
				return err
			}
			if err := s.flow.SelectPayment(c.Context, method); err != nil {
				return errors.Wrap(err, "select payment")
			}
			fmt.Fprintf(c.App.Writer, "payment: %s\n", method.Label())
			return nil
		},
	}
}

func reviewCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "print the order summary",
		Action: func(c *cli.Context) error {
			review, err := s.flow.Review(c.Context)
			if err != nil {
				return errors.Wrap(err, "review order")
			}
			printReview(c.App.Writer, review)
			return nil
		},
	}
}

func confirmCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "confirm",
		Usage: "place the order and empty the cart",
		Action: func(c *cli.Context) error {
			receipt, err := s.flow.Confirm(c.Context)
			if err != nil {
				return errors.Wrap(err, "confirm order")
			}
			printReview(c.App.Writer, &receipt.Review)
			fmt.Fprintf(c.App.Writer, "order %s placed at %s\n", receipt.OrderID, receipt.PlacedAt.Format("2006-01-02 15:04:05Z07:00"))
			return nil
		},
	}
}

func printCart(w io.Writer, store *cart.Store) {
	items := store.Items()
	if len(items) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "%s - %s\n", cart.Describe(it), cart.FormatPeso(it.Total()))
		for _, a := range it.AddOns {
			fmt.Fprintf(w, "    + %s (%s)\n", a.Name, cart.FormatPeso(a.Price))
		}
		fmt.Fprintf(w, "    key: %s\n", it.Key)
	}
	totals := store.Totals()
	fmt.Fprintf(w, "Total: %s (%d items)\n", cart.FormatPeso(totals.Total), totals.Count)
}

func printReview(w io.Writer, r *checkout.Review) {
	for _, l := range r.Lines {
		fmt.Fprintf(w, "%s - %s\n", l.Description, cart.FormatPeso(l.Total))
		for _, a := range l.AddOns {
			fmt.Fprintf(w, "    + %s (%s)\n", a.Name, cart.FormatPeso(a.Price))
		}
	}
	fmt.Fprintf(w, "Total: %s\n", cart.FormatPeso(r.Total))
	fmt.Fprintf(w, "Payment: %s\n", r.Payment)
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Errorf("amount %s must not be negative", d)
	}
	return d, nil
}

// parseAddOn reads NAME=PRICE. The last '=' separates the price so names may
// contain '='.
func parseAddOn(raw string) (cart.AddOn, error) {
	i := strings.LastIndex(raw, "=")
	if i <= 0 {
		return cart.AddOn{}, errors.Errorf("add-on %q: want NAME=PRICE", raw)
	}
	name := strings.TrimSpace(raw[:i])
	if name == "" {
		return cart.AddOn{}, errors.Errorf("add-on %q: name is required", raw)
	}
	price, err := parseAmount(raw[i+1:])
	if err != nil {
		return cart.AddOn{}, errors.Wrapf(err, "add-on %q", name)
	}
	return cart.AddOn{Name: name, Price: price}, nil
}
