package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"storefront-admin/config"
	"storefront-admin/handler"
	"storefront-admin/model"
	"storefront-admin/service"
)

type contextKey struct{}

// lifecycle holds the app opened for the running command so main can close
// it whether the command succeeded or not.
type lifecycle struct {
	app *app
}

func (l *lifecycle) Close() error {
	if l.app == nil {
		return nil
	}
	a := l.app
	l.app = nil
	return a.Close()
}

// appFrom returns the app wired by the root command's PersistentPreRunE.
func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(contextKey{}).(*app)
}

func newRootCmd(lc *lifecycle) *cobra.Command {
	var configPath, logLevel string

	root := &cobra.Command{
		Use:          "storefront-admin",
		Short:        "Admin client for the storefront REST API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				os.Setenv("STOREFRONT_CONFIG", configPath)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			lc.app = a
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, a))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides STOREFRONT_CONFIG)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newProfileCmd(),
		newCategoriesCmd(),
		newProductsCmd(),
		newCartCmd(),
	)
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// stateErr turns the error recorded by a read into a command failure.
func stateErr(msg string) error {
	if msg != "" {
		return errors.New(msg)
	}
	return nil
}

// --- serve ---

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin routes over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()

			h := handler.NewHandler(handler.Deps{
				Session:    a.session,
				Categories: a.categories,
				Products:   a.products,
				Cart:       a.cart,
				Feed:       a.feed,
				Logger:     a.log,
			})
			srv := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           h.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", srv.Addr).Info("server running")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// --- session ---

func newLoginCmd() *cobra.Command {
	var creds model.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if creds.Password == "" {
				creds.Password = os.Getenv("STOREFRONT_PASSWORD")
			}
			user, err := a.session.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Username, "username", "", "account name, used when --email is empty")
	cmd.Flags().StringVar(&creds.Password, "password", "", "password (defaults to STOREFRONT_PASSWORD)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return appFrom(cmd).session.Logout(cmd.Context())
		},
	}
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the logged in user; a rejected token ends the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.session.FetchProfile(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.session.State())
		},
	}
}

// --- categories ---

func addQueryFlags(cmd *cobra.Command, q *model.Query) {
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 10, "page size")
	cmd.Flags().StringVar(&q.Sort, "sort", "", "sort field")
	cmd.Flags().StringVar(&q.Order, "order", "", "asc or desc")
	cmd.Flags().StringVar(&q.Search, "search", "", "search term")
	cmd.Flags().StringToStringVar(&q.Filters, "filter", nil, "extra filters as key=value")
}

func newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "categories", Aliases: []string{"category"}, Short: "Manage categories"}

	var q model.Query
	list := &cobra.Command{
		Use:   "list",
		Short: "List categories, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := appFrom(cmd).categories
			s.Fetch(cmd.Context(), q)
			st := s.State()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"total": st.Total, "data": s.Sorted()})
		},
	}
	addQueryFlags(list, &q)

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s := appFrom(cmd).categories
			s.FetchByID(cmd.Context(), id)
			st := s.State()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st.Selected)
		},
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := appFrom(cmd).categories
			// load the current names so duplicates are caught locally
			s.Fetch(cmd.Context(), model.Query{})
			return s.Add(cmd.Context(), service.CategoryPayload{Name: args[0]})
		},
	}

	update := &cobra.Command{
		Use:   "update ID NAME",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s := appFrom(cmd).categories
			s.Fetch(cmd.Context(), model.Query{})
			return s.Update(cmd.Context(), id, service.CategoryPayload{Name: args[1]})
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return appFrom(cmd).categories.Delete(cmd.Context(), id)
		},
	}

	cmd.AddCommand(list, get, add, update, del)
	return cmd
}

// --- products ---

type productFlags struct {
	name, price, picture string
	categoryID           int64
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().StringVar(&f.price, "price", "", "price")
	cmd.Flags().Int64Var(&f.categoryID, "category", 0, "category id")
	cmd.Flags().StringVar(&f.picture, "picture", "", "path to a picture file")
}

// payload builds the form from the flags set on cmd. The returned closer
// releases the picture file.
func (f *productFlags) payload(cmd *cobra.Command) (service.ProductPayload, func(), error) {
	var p service.ProductPayload
	done := func() {}
	if cmd.Flags().Changed("name") {
		p.Name = &f.name
	}
	if cmd.Flags().Changed("price") {
		price := model.ParseAmount(f.price)
		p.Price = &price
	}
	if cmd.Flags().Changed("category") {
		p.CategoryID = &f.categoryID
	}
	if f.picture != "" {
		file, err := os.Open(f.picture)
		if err != nil {
			return p, done, err
		}
		p.Picture = &service.Upload{Filename: filepath.Base(f.picture), Content: file}
		done = func() { file.Close() }
	}
	return p, done, nil
}

func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "products", Aliases: []string{"product"}, Short: "Manage products"}

	var q model.Query
	list := &cobra.Command{
		Use:   "list",
		Short: "List products, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := appFrom(cmd).products
			s.Fetch(cmd.Context(), q)
			st := s.State()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"total": st.Total, "data": s.Sorted()})
		},
	}
	addQueryFlags(list, &q)

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s := appFrom(cmd).products
			s.FetchByID(cmd.Context(), id)
			st := s.State()
			if err := stateErr(st.Error); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st.Selected)
		},
	}

	var addFlags productFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a product",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := addFlags.payload(cmd)
			if err != nil {
				return err
			}
			defer done()
			return appFrom(cmd).products.Add(cmd.Context(), p)
		},
	}
	addFlags.register(add)

	var updateFlags productFlags
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Update the given fields of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, done, err := updateFlags.payload(cmd)
			if err != nil {
				return err
			}
			defer done()
			return appFrom(cmd).products.Update(cmd.Context(), id, p)
		},
	}
	updateFlags.register(update)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return appFrom(cmd).products.Delete(cmd.Context(), id)
		},
	}

	cmd.AddCommand(list, get, add, update, del)
	return cmd
}

// --- cart ---

func newCartCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cart", Short: "Manage the local cart"}

	show := func(cmd *cobra.Command) error {
		c := appFrom(cmd).cart
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"lines": c.Lines(),
			"total": c.Total(),
			"count": c.Count(),
		})
	}
	withID := func(use, short string, op func(ctx context.Context, a *app, id int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := op(cmd.Context(), appFrom(cmd), id); err != nil {
					return err
				}
				return show(cmd)
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the cart",
			RunE:  func(cmd *cobra.Command, _ []string) error { return show(cmd) },
		},
		withID("add", "Add a product, loading it from the backend", func(ctx context.Context, a *app, id int64) error {
			a.products.FetchByID(ctx, id)
			st := a.products.State()
			if st.Selected == nil || st.Selected.ID != id {
				if st.Error != "" {
					return errors.New(st.Error)
				}
				return fmt.Errorf("product %d not found", id)
			}
			return a.cart.Add(ctx, *st.Selected)
		}),
		withID("remove", "Remove a product", func(ctx context.Context, a *app, id int64) error {
			return a.cart.Remove(ctx, id)
		}),
		withID("inc", "Increase the quantity by one", func(ctx context.Context, a *app, id int64) error {
			return a.cart.Increment(ctx, id)
		}),
		withID("dec", "Decrease the quantity by one, keeping at least one", func(ctx context.Context, a *app, id int64) error {
			return a.cart.Decrement(ctx, id)
		}),
		&cobra.Command{
			Use:   "qty ID QTY",
			Short: "Set the quantity (at least 1)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				qty, err := strconv.Atoi(args[1])
				if err != nil {
					qty = 1
				}
				if err := appFrom(cmd).cart.UpdateQty(cmd.Context(), id, qty); err != nil {
					return err
				}
				return show(cmd)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := appFrom(cmd).cart.Clear(cmd.Context()); err != nil {
					return err
				}
				return show(cmd)
			},
		},
	)
	return cmd
}
