package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alecgard/courtier/internal/auth"
	"github.com/alecgard/courtier/internal/authz"
	"github.com/alecgard/courtier/internal/config"
	"github.com/alecgard/courtier/internal/lead"
	"github.com/alecgard/courtier/internal/org"
	"github.com/alecgard/courtier/internal/user"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo organization with users and leads",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoUsers = []struct {
	email string
	name  string
	role  authz.Role
}{
	{"owner@demo.courtier.dev", "Olive Owner", authz.RoleOwner},
	{"admin@demo.courtier.dev", "Ada Admin", authz.RoleAdmin},
	{"member@demo.courtier.dev", "Max Member", authz.RoleMember},
	{"viewer@demo.courtier.dev", "Vera Viewer", authz.RoleViewer},
}

const demoPassword = "courtier-demo"

func strField(v string) lead.Field[string] {
	return lead.NewField(v)
}

var demoLeads = []lead.CreateInput{
	{
		Name:   "Acme Industrial",
		Email:  strField("purchasing@acme-industrial.example"),
		Phone:  strField("+1-555-0147"),
		Source: strField("webform"),
		Notes:  strField("Asked for a quote on the enterprise tier."),
	},
	{
		Name:   "Bluewater Logistics",
		Email:  strField("ops@bluewater.example"),
		Source: strField("referral"),
		Status: lead.NewField(lead.StatusContacted),
	},
	{
		Name:   "Cedar & Pine Cafe",
		Phone:  strField("+1-555-0163"),
		Source: strField("cold_call"),
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	userStore := user.NewStore(pool, hasher)
	orgStore := org.NewStore(pool)
	leadStore := lead.NewStore(pool)

	// Users. Reruns are tolerated: existing accounts are reused.
	users := make(map[authz.Role]*user.User, len(demoUsers))
	for _, du := range demoUsers {
		name := du.name
		u, err := userStore.Create(ctx, user.CreateUserInput{
			Email:    du.email,
			Password: demoPassword,
			Name:     &name,
		})
		if errors.Is(err, user.ErrEmailTaken) {
			u, err = userStore.GetByEmail(ctx, du.email)
		}
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", du.email, err)
		}
		users[du.role] = u
		slog.Info("seeded user", "email", u.Email, "role", string(du.role))
	}

	// Organization owned by the owner user.
	desc := "Demo organization seeded by the courtier CLI."
	o, err := orgStore.Create(ctx, org.CreateOrgInput{
		Name:        "Demo Org",
		Description: &desc,
	}, users[authz.RoleOwner].ID)
	if errors.Is(err, org.ErrNameTaken) {
		slog.Info("demo organization already exists, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("seeding organization: %w", err)
	}
	slog.Info("seeded organization", "id", o.ID.String(), "name", o.Name)

	// Remaining memberships.
	for _, role := range []authz.Role{authz.RoleAdmin, authz.RoleMember, authz.RoleViewer} {
		if _, err := orgStore.Link(ctx, o.ID, users[role].ID, role); err != nil {
			return fmt.Errorf("seeding %s membership: %w", role, err)
		}
	}

	// Leads, created by the admin, one assigned to the member.
	adminID := users[authz.RoleAdmin].ID
	memberID := users[authz.RoleMember].ID
	for i, in := range demoLeads {
		l, err := leadStore.Create(ctx, o.ID, in, adminID)
		if err != nil {
			return fmt.Errorf("seeding lead %q: %w", in.Name, err)
		}
		if i == 0 {
			if _, err := leadStore.Update(ctx, l, lead.Patch{
				AssignedTo: lead.NewField(memberID),
			}, adminID); err != nil {
				return fmt.Errorf("assigning lead %q: %w", in.Name, err)
			}
		}
		slog.Info("seeded lead", "id", l.ID.String(), "name", l.Name)
	}

	slog.Info("seed complete", "org_id", o.ID.String(), "password", demoPassword)
	return nil
}
