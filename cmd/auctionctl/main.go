package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/deposit-auction-client/internal/api"
	"github.com/DoyleJ11/deposit-auction-client/internal/httpapi"
	"github.com/DoyleJ11/deposit-auction-client/internal/session"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "auctionctl",
		Usage: "Deposit auction client: live auction sync, local bridge and account tools",
		Commands: []*cli.Command{
			loginCommand(),
			registerCommand(),
			logoutCommand(),
			meCommand(),
			reportCommand(),
			documentsCommand(),
			watchCommand(),
			bridgeCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.Run(ctx, args); err != nil {
		log.Fatal(err)
	}
}

// withApp builds the app for one action and always closes it.
func withApp(fn func(ctx context.Context, c *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) (err error) {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(ctx, c, a)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and store the token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("AUCTION_PASSWORD")},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
			u, err := a.api.Login(ctx, c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s (%s)\n", orElse(u.Email, string(u.ID)), orElse(u.Role, "user"))
			return nil
		}),
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("AUCTION_PASSWORD")},
			&cli.StringFlag{Name: "name", Required: true},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
			resp, err := a.api.Register(ctx, c.String("email"), c.String("password"), c.String("name"))
			if err != nil {
				return err
			}
			fmt.Printf("registered %s, run login to start a session\n", orElse(resp.User.Email, c.String("email")))
			return nil
		}),
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored token",
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
			if err := a.api.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		}),
	}
}

func meCommand() *cli.Command {
	return &cli.Command{
		Name:  "me",
		Usage: "Show the current user",
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
			u, err := a.api.Me(ctx)
			if err != nil {
				return err
			}
			return printJSON(u)
		}),
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Print the closing report of an auction",
		ArgsUsage: "<auction-id>",
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
			id := c.Args().First()
			if id == "" {
				return errors.New("report: auction id is required")
			}
			r, err := a.api.Report(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(r)
		}),
	}
}

func documentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "documents",
		Usage: "Bank document uploads",
		Commands: []*cli.Command{
			{
				Name:  "types",
				Usage: "List required document types",
				Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
					types, err := a.api.DocumentTypes(ctx)
					if err != nil {
						return err
					}
					return printJSON(types)
				}),
			},
			{
				Name:  "list",
				Usage: "List uploaded documents",
				Flags: []cli.Flag{&cli.StringFlag{Name: "auction", Usage: "only documents for this auction"}},
				Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
					var (
						docs []api.Document
						err  error
					)
					if id := c.String("auction"); id != "" {
						docs, err = a.api.AuctionDocuments(ctx, id)
					} else {
						docs, err = a.api.MyDocuments(ctx)
					}
					if err != nil {
						return err
					}
					return printJSON(docs)
				}),
			},
			{
				Name:      "upload",
				Usage:     "Upload a pdf or word document",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "auction", Required: true},
					&cli.StringFlag{Name: "type", Required: true, Usage: "document type title"},
				},
				Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
					path := c.Args().First()
					if path == "" {
						return errors.New("upload: file is required")
					}
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					defer f.Close()

					doc, err := a.api.UploadDocument(ctx, api.Upload{
						AuctionID: c.String("auction"),
						FileType:  c.String("type"),
						Filename:  path,
						Content:   f,
					})
					if err != nil {
						return err
					}
					return printJSON(doc)
				}),
			},
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Connect and log every state change and notice",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "join", Usage: "auction id to join once connected"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
			s := a.startSession(ctx)
			sub, err := s.Subscribe(ctx)
			if err != nil {
				return err
			}
			defer sub.Close()

			join := strings.TrimSpace(c.String("join"))
			for {
				select {
				case <-ctx.Done():
					return nil
				case v, ok := <-sub.Views():
					if !ok {
						return nil
					}
					logView(a.logger, v)
					if v.NeedsAuth {
						a.logger.Warn("not authenticated, run login first")
					}
					if join != "" && v.Connected {
						if err := s.JoinAuction(ctx, join); err != nil {
							a.logger.Warn("join", zap.Error(err))
						}
						join = ""
					}
				case n, ok := <-sub.Notices():
					if !ok {
						return nil
					}
					a.logger.Info("notice",
						zap.String("level", string(n.Level)),
						zap.String("event", n.Event),
						zap.String("message", n.Message),
						zap.Any("data", n.Data),
					)
				}
			}
		}),
	}
}

func logView(logger *zap.Logger, v session.View) {
	fields := []zap.Field{
		zap.Int("version", v.Version),
		zap.String("status", string(v.Status)),
		zap.Int("auctions", len(v.Auctions)),
		zap.Int("lots", len(v.Lots)),
		zap.Int("online", len(v.OnlineUsers)),
	}
	if v.CurrentAuctionID != "" {
		fields = append(fields, zap.String("auction", v.CurrentAuctionID))
	}
	if v.ReconnectAttempt > 0 {
		fields = append(fields, zap.Int("attempt", v.ReconnectAttempt))
	}
	if v.RetriesExhausted {
		fields = append(fields, zap.Bool("retries_exhausted", true))
	}
	logger.Info("view", fields...)
}

func bridgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "bridge",
		Usage: "Serve the live session to a local UI over HTTP and websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (default BRIDGE_ADDR)"},
		},
		Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
			addr := orElse(c.String("addr"), a.cfg.BridgeAddr)
			s := a.startSession(ctx)

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.SetupRoutes(s, a.api, a.logger),
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("bridge listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		}),
	}
}

// orElse returns s, or fallback when s is blank.
func orElse(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
