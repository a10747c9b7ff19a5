package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ruteri/ondc-onboarding-service/api/clients"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/urfave/cli/v2"
)

var flagServerAddr = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:3000",
	EnvVars: []string{"ONBOARDING_SERVER"},
	Usage:   "onboarding server address",
}
var flagTimeout = &cli.DurationFlag{
	Name:  "timeout",
	Value: 60 * time.Second,
	Usage: "request timeout",
}
var flagSubscriberID = &cli.StringFlag{
	Name:     "subscriber-id",
	Required: true,
	Usage:    "subscriber id (domain) the keys belong to",
}
var flagKeyID = &cli.StringFlag{
	Name:  "key-id",
	Usage: "unique key id; the active key is used when empty",
}
var flagEnvironment = &cli.StringFlag{
	Name:  "env",
	Value: string(interfaces.Staging),
	Usage: "registry environment: staging, preprod or prod",
}
var flagOutput = &cli.StringFlag{
	Name:  "out",
	Usage: "write the verification page to this file instead of stdout",
}

var lookupFlags = []cli.Flag{
	flagEnvironment,
	&cli.StringFlag{Name: "lookup-subscriber-id", Usage: "subscriber id to look up"},
	&cli.StringFlag{Name: "country", Value: "IND", Usage: "country code"},
	&cli.StringFlag{Name: "domain", Usage: "ONDC domain, e.g. ONDC:RET10"},
	&cli.StringFlag{Name: "type", Usage: "participant type: BAP, BPP or BG"},
	&cli.StringFlag{Name: "city", Usage: "city code, e.g. std:080"},
}

func main() {
	app := &cli.App{
		Name:  "onboarding-client",
		Usage: "Drive the ONDC onboarding server",
		Flags: []cli.Flag{flagServerAddr, flagTimeout},
		Commands: []*cli.Command{
			{
				Name:  "generate-keys",
				Usage: "generate a signing and encryption key pair",
				Flags: []cli.Flag{flagSubscriberID},
				Action: func(cCtx *cli.Context) error {
					return newClient(cCtx).GenerateKeys(cCtx.Context, cCtx.String(flagSubscriberID.Name))
				},
			},
			{
				Name:  "verify",
				Usage: "build the ondc-site-verification page",
				Flags: []cli.Flag{flagSubscriberID, flagKeyID, flagOutput},
				Action: func(cCtx *cli.Context) error {
					out := io.Writer(os.Stdout)
					if path := cCtx.String(flagOutput.Name); path != "" {
						f, err := os.Create(path)
						if err != nil {
							return err
						}
						defer f.Close()
						out = f
					}
					return newClient(cCtx).Verify(cCtx.Context, cCtx.String(flagSubscriberID.Name), cCtx.String(flagKeyID.Name), out)
				},
			},
			{
				Name:      "subscribe",
				Usage:     "submit a subscription request read from a JSON file (- for stdin)",
				ArgsUsage: "<request.json>",
				Action: func(cCtx *cli.Context) error {
					req, err := readSubscription(cCtx.Args().First())
					if err != nil {
						return err
					}
					return newClient(cCtx).Subscribe(cCtx.Context, req)
				},
			},
			{
				Name:  "lookup",
				Usage: "search the registry",
				Flags: lookupFlags,
				Action: func(cCtx *cli.Context) error {
					env, err := interfaces.ParseEnvironment(cCtx.String(flagEnvironment.Name))
					if err != nil {
						return err
					}
					return newClient(cCtx).Lookup(cCtx.Context, env, lookupQuery(cCtx))
				},
			},
			{
				Name:  "vlookup",
				Usage: "search the registry with a signed query",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "sender", Usage: "sender subscriber id; the server's own id when empty"},
				}, lookupFlags...),
				Action: func(cCtx *cli.Context) error {
					env, err := interfaces.ParseEnvironment(cCtx.String(flagEnvironment.Name))
					if err != nil {
						return err
					}
					return newClient(cCtx).VLookup(cCtx.Context, env, cCtx.String("sender"), lookupQuery(cCtx))
				},
			},
			{
				Name:  "keys",
				Usage: "manage stored keys",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Flags: []cli.Flag{flagSubscriberID},
						Action: func(cCtx *cli.Context) error {
							return newClient(cCtx).ListKeys(cCtx.Context, cCtx.String(flagSubscriberID.Name))
						},
					},
					{
						Name:  "get",
						Flags: []cli.Flag{flagSubscriberID, requiredKeyID()},
						Action: func(cCtx *cli.Context) error {
							return newClient(cCtx).GetKey(cCtx.Context, cCtx.String(flagSubscriberID.Name), cCtx.String(flagKeyID.Name))
						},
					},
					{
						Name:  "delete",
						Flags: []cli.Flag{flagSubscriberID, requiredKeyID()},
						Action: func(cCtx *cli.Context) error {
							return newClient(cCtx).DeleteKey(cCtx.Context, cCtx.String(flagSubscriberID.Name), cCtx.String(flagKeyID.Name))
						},
					},
				},
			},
			{
				Name:  "status",
				Usage: "show server status",
				Action: func(cCtx *cli.Context) error {
					return newClient(cCtx).Status(cCtx.Context)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func requiredKeyID() *cli.StringFlag {
	f := *flagKeyID
	f.Required = true
	f.Usage = "unique key id"
	return &f
}

func lookupQuery(cCtx *cli.Context) interfaces.LookupQuery {
	return interfaces.LookupQuery{
		SubscriberID: cCtx.String("lookup-subscriber-id"),
		Country:      cCtx.String("country"),
		Domain:       cCtx.String("domain"),
		Type:         cCtx.String("type"),
		City:         cCtx.String("city"),
	}
}

func readSubscription(path string) (interfaces.SubscriptionRequest, error) {
	var req interfaces.SubscriptionRequest
	if path == "" {
		return req, fmt.Errorf("missing request file")
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("could not parse subscription request: %w", err)
	}
	return req, nil
}

type Client struct {
	Provider clients.OnboardingProvider
	Out      io.Writer
}

func newClient(cCtx *cli.Context) *Client {
	return &Client{
		Provider: clients.NewOnboardingClient(cCtx.String(flagServerAddr.Name), cCtx.Duration(flagTimeout.Name)),
		Out:      os.Stdout,
	}
}

func (c *Client) print(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, string(encoded))
	return err
}

func (c *Client) GenerateKeys(ctx context.Context, subscriberID string) error {
	resp, err := c.Provider.GenerateKeys(ctx, subscriberID)
	if err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}
	return c.print(resp)
}

// Verify writes the verification page to out.
func (c *Client) Verify(ctx context.Context, subscriberID, keyID string, out io.Writer) error {
	resp, err := c.Provider.GenerateVerification(ctx, subscriberID, keyID)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	_, err = io.WriteString(out, resp.HTML)
	return err
}

func (c *Client) Subscribe(ctx context.Context, req interfaces.SubscriptionRequest) error {
	resp, err := c.Provider.Subscribe(ctx, req)
	if err != nil {
		return fmt.Errorf("subscription failed: %w", err)
	}
	return c.print(resp)
}

func (c *Client) Lookup(ctx context.Context, env interfaces.Environment, query interfaces.LookupQuery) error {
	resp, err := c.Provider.Lookup(ctx, env, query)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	return c.print(resp)
}

func (c *Client) VLookup(ctx context.Context, env interfaces.Environment, sender string, query interfaces.LookupQuery) error {
	resp, err := c.Provider.VLookup(ctx, env, sender, query)
	if err != nil {
		return fmt.Errorf("vlookup failed: %w", err)
	}
	return c.print(resp)
}

func (c *Client) ListKeys(ctx context.Context, subscriberID string) error {
	resp, err := c.Provider.ListKeys(ctx, subscriberID)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *Client) GetKey(ctx context.Context, subscriberID, keyID string) error {
	resp, err := c.Provider.GetKey(ctx, subscriberID, keyID)
	if err != nil {
		return err
	}
	return c.print(resp)
}

func (c *Client) DeleteKey(ctx context.Context, subscriberID, keyID string) error {
	if err := c.Provider.DeleteKey(ctx, subscriberID, keyID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.Out, "deleted %s/%s\n", subscriberID, keyID)
	return err
}

func (c *Client) Status(ctx context.Context) error {
	resp, err := c.Provider.Status(ctx)
	if err != nil {
		return err
	}
	return c.print(resp)
}
