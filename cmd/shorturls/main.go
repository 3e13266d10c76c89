package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/auth"
	"github.com/mikepea/shorturls/pkg/shorturls/config"
	"github.com/mikepea/shorturls/pkg/shorturls/links"
	"github.com/mikepea/shorturls/pkg/shorturls/server"
	"github.com/urfave/cli/v2"
)

func main() {
	// glog registers its flags on the standard flag set; the CLI only needs stderr output.
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	app := &cli.App{
		Name:  "shorturls",
		Usage: "administer short links against the configured stores",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log store and cache activity"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				flag.Set("v", "1")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "create a link",
				ArgsUsage: "<destination>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "code", Usage: "requested code (generated when empty)"},
					&cli.StringFlag{Name: "title"},
					&cli.DurationFlag{Name: "expires-in", Usage: "expire the link after this long"},
				},
				Action: withApp(createLink),
			},
			{
				Name:      "get",
				Usage:     "show a link by id",
				ArgsUsage: "<id>",
				Action:    withApp(getLink),
			},
			{
				Name:  "list",
				Usage: "list links, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "only links whose code, destination or title contains this"},
				},
				Action: withApp(listLinks),
			},
			{
				Name:      "update",
				Usage:     "change fields of a link",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "code"},
					&cli.StringFlag{Name: "destination"},
					&cli.StringFlag{Name: "title"},
					&cli.BoolFlag{Name: "active"},
					&cli.TimestampFlag{Name: "expires-at", Layout: time.RFC3339},
					&cli.BoolFlag{Name: "no-expiry", Usage: "remove the expiry"},
				},
				Action: withApp(updateLink),
			},
			{
				Name:      "delete",
				Usage:     "delete a link, releasing its code",
				ArgsUsage: "<id>",
				Action:    withApp(deleteLink),
			},
			{
				Name:      "resolve",
				Usage:     "resolve a code to its destination (counts a click)",
				ArgsUsage: "<code>",
				Action:    withApp(resolveCode),
			},
			{
				Name:      "create-admin",
				Usage:     "create an admin account or promote an existing one",
				ArgsUsage: "<email>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Value: "Admin"},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"SHORTURLS_ADMIN_PASSWORD"}},
				},
				Action: withApp(createAdmin),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		glog.Flush()
		os.Exit(1)
	}
}

func withApp(fn func(*cli.Context, *server.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := server.Open(c.Context, config.Load())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func argID(c *cli.Context) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Args().First(), &id); err != nil || id == 0 {
		return 0, fmt.Errorf("expected a link id, got %q", c.Args().First())
	}
	return id, nil
}

func createLink(c *cli.Context, a *server.App) error {
	req := links.CreateRequest{
		Destination: c.Args().First(),
		Code:        c.String("code"),
		Title:       c.String("title"),
	}
	if d := c.Duration("expires-in"); d > 0 {
		t := time.Now().Add(d)
		req.ExpiresAt = &t
	}

	link, err := a.Links.Create(c.Context, req)
	if err != nil {
		return err
	}
	return printJSON(link)
}

func getLink(c *cli.Context, a *server.App) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	link, err := a.Links.Get(c.Context, id)
	if err != nil {
		return err
	}
	return printJSON(link)
}

func listLinks(c *cli.Context, a *server.App) error {
	all, err := a.Links.Search(c.Context, c.String("query"))
	if err != nil {
		return err
	}
	return printJSON(all)
}

func updateLink(c *cli.Context, a *server.App) error {
	id, err := argID(c)
	if err != nil {
		return err
	}

	var changes links.Changes
	if c.IsSet("code") {
		code := c.String("code")
		changes.Code = &code
	}
	if c.IsSet("destination") {
		destination := c.String("destination")
		changes.Destination = &destination
	}
	if c.IsSet("title") {
		title := c.String("title")
		changes.Title = &title
	}
	if c.IsSet("active") {
		active := c.Bool("active")
		changes.Active = &active
	}
	if t := c.Timestamp("expires-at"); t != nil {
		changes.ExpiresAt = t
	}
	changes.ClearExpiresAt = c.Bool("no-expiry")

	link, err := a.Links.Update(c.Context, id, changes)
	if err != nil {
		return err
	}
	return printJSON(link)
}

func deleteLink(c *cli.Context, a *server.App) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	if err := a.Links.Delete(c.Context, id); err != nil {
		return err
	}
	fmt.Printf("Deleted link %d\n", id)
	return nil
}

func resolveCode(c *cli.Context, a *server.App) error {
	destination, err := a.Links.Resolve(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(destination)
	return nil
}

func createAdmin(c *cli.Context, a *server.App) error {
	user, err := auth.CreateAdmin(a.DB, c.Args().First(), c.String("name"), c.String("password"))
	if err != nil {
		return err
	}
	fmt.Printf("Admin %s (id %d) ready\n", user.Email, user.ID)
	return nil
}

