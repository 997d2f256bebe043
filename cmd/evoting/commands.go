package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xxxsen/evoting/internal/config"
	"github.com/xxxsen/evoting/internal/revocation"
	"github.com/xxxsen/evoting/internal/service"
)

type loader func() (*config.Config, error)

// withServices opens the store and hands fn the wired services. Sessions are
// not used by the CLI, so an in-memory revocation list is enough.
func withServices(load loader, fn func(ctx context.Context, svc *services) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		svc := buildServices(cfg, store, revocation.NewMemoryStore(16, cfg.JWTTTL()))
		return fn(cmd.Context(), svc)
	}
}

func newAdminCmd(load loader) *cobra.Command {
	var email, password string
	adminCmd := &cobra.Command{Use: "admin", Short: "manage administrator accounts"}
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create an administrator, or promote an existing account",
		RunE: withServices(load, func(ctx context.Context, svc *services) error {
			created, err := svc.auth.EnsureAdmin(ctx, email, password)
			if err != nil {
				return err
			}
			if !created {
				fmt.Printf("%s is already an administrator\n", email)
				return nil
			}
			fmt.Printf("administrator %s ready\n", email)
			return nil
		}),
	}
	createCmd.Flags().StringVar(&email, "email", "", "administrator email")
	createCmd.Flags().StringVar(&password, "password", "", "administrator password")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")
	adminCmd.AddCommand(createCmd)
	return adminCmd
}

func newCandidateCmd(load loader) *cobra.Command {
	candidateCmd := &cobra.Command{Use: "candidate", Short: "manage candidates"}

	var in service.CandidateInput
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "add a candidate",
		RunE: withServices(load, func(ctx context.Context, svc *services) error {
			c, err := svc.candidates.Create(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("candidate %d added: %s (%s)\n", c.ID, c.Name, c.Party)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&in.Name, "name", "", "candidate name")
	addCmd.Flags().StringVar(&in.Party, "party", "", "party")
	addCmd.Flags().StringVar(&in.Description, "description", "", "markdown description")
	addCmd.Flags().StringVar(&in.ImageURL, "image-url", "", "image url")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list candidates with vote counts",
		RunE: withServices(load, func(ctx context.Context, svc *services) error {
			list, err := svc.candidates.ListWithCounts(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPARTY\tVOTES")
			for _, c := range list {
				var votes int64
				if c.VoteCount != nil {
					votes = *c.VoteCount
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.ID, c.Name, c.Party, votes)
			}
			return w.Flush()
		}),
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "delete a candidate using the configured policy",
		Args:  cobra.ExactArgs(1),
	}
	deleteCmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid candidate id %q", args[0])
		}
		return withServices(load, func(ctx context.Context, svc *services) error {
			out, err := svc.candidates.Delete(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("candidate %d: removed=%t withdrawn=%t ballots_purged=%d (policy %s)\n",
				id, out.Removed, out.Withdrawn, out.BallotsPurged, svc.candidates.Policy())
			return nil
		})(cmd, args)
	}

	candidateCmd.AddCommand(addCmd, listCmd, deleteCmd)
	return candidateCmd
}
