package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/cart"
	"github.com/respectcfw/webclient/internal/catalog"
	"github.com/respectcfw/webclient/internal/config"
	"github.com/respectcfw/webclient/internal/credstore"
	"github.com/respectcfw/webclient/internal/logging"
	"github.com/respectcfw/webclient/internal/metrics"
	"github.com/respectcfw/webclient/internal/orders"
	"github.com/respectcfw/webclient/internal/rules"
	"github.com/respectcfw/webclient/internal/session"
	"github.com/respectcfw/webclient/internal/settings"
	"github.com/respectcfw/webclient/internal/signal"
	"github.com/respectcfw/webclient/internal/users"
)

// app bundles the stores the way the web shell would: one shared
// adapter, one credential store, singletons per resource.
type app struct {
	session  *session.Store
	cart     *cart.Store
	orders   *orders.Store
	catalog  *catalog.Store
	rules    *rules.Store
	users    *users.Store
	settings *settings.Store
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	state, err := credstore.Open(cfg.StatePath)
	if err != nil {
		log.Fatalf("state init error: %v", err)
	}
	defer state.Close()

	collector := metrics.NewCollector(prometheus.NewRegistry())
	api := apiclient.NewClient(cfg.APIBaseURL, state,
		apiclient.WithLogger(logger),
		apiclient.WithMetrics(collector),
		apiclient.WithTimeout(cfg.RequestTimeout),
	)

	created := signal.NewBroadcaster()
	a := &app{
		session:  session.NewStore(api, state),
		cart:     cart.NewStore(api),
		orders:   orders.NewStore(api, created),
		catalog:  catalog.NewStore(api),
		rules:    rules.NewStore(api),
		users:    users.NewStore(api),
		settings: settings.NewStore(api),
	}

	ctx := logging.IntoContext(context.Background(), logger)

	a.session.Restore()
	if err := a.session.CheckAuth(ctx); err != nil {
		logger.Warn("stored session no longer valid", "error", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: respectcfw <command> [args]

commands:
  login <email> <password>
  admin-login <email> <password>
  register <name> <email> <password> [slug]
  logout
  profile
  forgot-password <email> <slug>
  reset-password <token> <new-password>
  items [page]
  cart
  cart-add <item-id>
  cart-remove <item-id>
  cart-clear
  checkout
  orders
  my-orders
  rules
  streamers
  settings`)
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <email> <password>")
		}
		if err := a.session.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("signed in as %s\n", a.session.User().Name)
		return nil

	case "admin-login":
		if len(args) != 2 {
			return fmt.Errorf("usage: admin-login <email> <password>")
		}
		if err := a.session.AdminLogin(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("signed in as admin %s\n", a.session.User().Name)
		return nil

	case "register":
		if len(args) < 3 {
			return fmt.Errorf("usage: register <name> <email> <password> [slug]")
		}
		form := session.RegisterForm{Name: args[0], Email: args[1], Password: args[2]}
		if len(args) > 3 {
			form.Slug = args[3]
		}
		if err := a.session.Register(ctx, form); err != nil {
			return err
		}
		fmt.Printf("registered %s\n", a.session.User().Email)
		return nil

	case "logout":
		a.session.Logout(ctx)
		fmt.Println("signed out")
		return nil

	case "profile":
		user := a.session.User()
		if user == nil {
			return fmt.Errorf("not signed in")
		}
		fmt.Printf("%s <%s> role=%s slug=%s\n", user.Name, user.Email, user.Role, user.Slug)
		return nil

	case "forgot-password":
		if len(args) != 2 {
			return fmt.Errorf("usage: forgot-password <email> <slug>")
		}
		env, err := a.session.ForgotPassword(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		var payload struct {
			ResetLink string `json:"resetLink"`
		}
		if err := env.Decode(&payload); err == nil && payload.ResetLink != "" {
			fmt.Printf("reset link: %s\n", payload.ResetLink)
		} else {
			fmt.Println(env.Message)
		}
		return nil

	case "reset-password":
		if len(args) != 2 {
			return fmt.Errorf("usage: reset-password <token> <new-password>")
		}
		if err := a.session.ResetPassword(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("password updated")
		return nil

	case "items":
		page := 1
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil {
				page = v
			}
		}
		if err := a.catalog.FetchItems(ctx, page, 12, catalog.ListFilter{}); err != nil {
			return err
		}
		for _, it := range a.catalog.Items() {
			fmt.Printf("%s  %-30s %8.2f  by %s\n", it.ID, it.Title, it.Price, it.Seller.Name)
		}
		fmt.Printf("page %d of %d\n", a.catalog.CurrentPage(), a.catalog.TotalPages())
		return nil

	case "cart":
		if err := a.cart.Fetch(ctx); err != nil {
			return err
		}
		for _, it := range a.cart.Items() {
			fmt.Printf("%s  %-30s %8.2f x%d  from %s\n", it.ID, it.Title, it.Price, it.Quantity, it.SellerName)
		}
		fmt.Printf("total: %.2f\n", a.cart.Total())
		return nil

	case "cart-add":
		if len(args) != 1 {
			return fmt.Errorf("usage: cart-add <item-id>")
		}
		return a.cart.Add(ctx, args[0])

	case "cart-remove":
		if len(args) != 1 {
			return fmt.Errorf("usage: cart-remove <item-id>")
		}
		return a.cart.Remove(ctx, args[0])

	case "cart-clear":
		return a.cart.Clear(ctx)

	case "checkout":
		if err := a.orders.Checkout(ctx); err != nil {
			return err
		}
		fmt.Println("order placed")
		return nil

	case "orders":
		if err := a.orders.List(ctx, orders.ListFilter{}); err != nil {
			return err
		}
		for _, o := range a.orders.Orders() {
			fmt.Printf("%s  %s  %8.2f  %s\n", o.OrderNumber, o.Status, o.TotalPrice, o.CreatedAt)
		}
		return nil

	case "my-orders":
		list, err := a.orders.MyOrders(ctx)
		if err != nil {
			return err
		}
		for _, o := range list {
			fmt.Printf("%s  %s  %8.2f  %s\n", o.OrderNumber, o.Status, o.TotalPrice, o.CreatedAt)
		}
		return nil

	case "rules":
		active := true
		if err := a.rules.Fetch(ctx, &active); err != nil {
			return err
		}
		for _, r := range a.rules.Rules() {
			fmt.Printf("%2d. %s\n", r.Order, r.Title)
		}
		return nil

	case "streamers":
		if err := a.users.FetchStreamers(ctx, 1, 12, ""); err != nil {
			return err
		}
		for _, st := range a.users.Streamers() {
			fmt.Printf("%-20s %s\n", st.Name, st.Slug)
		}
		return nil

	case "settings":
		if err := a.settings.Fetch(ctx); err != nil {
			return err
		}
		st := a.settings.Settings()
		fmt.Printf("site: %s\nstream: %s\nmaintenance: %v\n", st.SiteName, st.CurrentStreamLink, st.MaintenanceMode)
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}
