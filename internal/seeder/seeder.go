package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lostfound/internal/identity/local"
	profile "lostfound/internal/profile/models"
	workflow "lostfound/internal/workflow/models"
	id "lostfound/pkg/domain"
	"lostfound/pkg/requestcontext"
)

// Accounts creates confirmed provider accounts.
type Accounts interface {
	RegisterConfirmed(ctx context.Context, email, password string) (*local.User, error)
}

// Profiles creates application profiles for seeded accounts.
type Profiles interface {
	Create(ctx context.Context, userID id.UserID, email, displayName string, role profile.Role) (*profile.Profile, error)
}

// Workflow reports and verifies demo items through the real service so the
// activity feed matches what a live run would produce.
type Workflow interface {
	ReportItem(ctx context.Context, reporter requestcontext.Principal, in workflow.NewItem) (*workflow.LostItem, error)
	VerifyItem(ctx context.Context, admin requestcontext.Principal, itemID id.ItemID, decision workflow.Decision) (*workflow.LostItem, error)
}

// DemoPassword is shared by every seeded account.
const DemoPassword = "lostfound-demo"

// Seeder populates in-memory stores with demo data
type Seeder struct {
	accounts Accounts
	profiles Profiles
	workflow Workflow
	logger   *slog.Logger
}

func New(accounts Accounts, profiles Profiles, wf Workflow, logger *slog.Logger) *Seeder {
	return &Seeder{
		accounts: accounts,
		profiles: profiles,
		workflow: wf,
		logger:   logger,
	}
}

type demoUser struct {
	email string
	name  string
	role  profile.Role
}

// SeedAll creates one admin, three finders and a handful of items.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data...")

	users, err := s.seedUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	items, err := s.seedItems(ctx, users)
	if err != nil {
		return fmt.Errorf("failed to seed items: %w", err)
	}

	s.logger.Info("demo data seeded successfully",
		"users", len(users),
		"items", items,
	)
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]requestcontext.Principal, error) {
	demoUsers := []demoUser{
		{"desk@campus.edu", "Front Desk", profile.RoleAdmin},
		{"alice@campus.edu", "Alice Anderson", profile.RoleFinder},
		{"bob@campus.edu", "Bob Brown", profile.RoleFinder},
		{"charlie@campus.edu", "Charlie Chen", profile.RoleFinder},
	}

	principals := make([]requestcontext.Principal, 0, len(demoUsers))
	for _, u := range demoUsers {
		acct, err := s.accounts.RegisterConfirmed(ctx, u.email, DemoPassword)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", u.email, err)
		}
		p, err := s.profiles.Create(ctx, acct.ID, u.email, u.name, u.role)
		if err != nil {
			return nil, fmt.Errorf("create profile %s: %w", u.email, err)
		}
		principals = append(principals, requestcontext.Principal{UserID: p.UserID, Role: string(p.Role)})
	}
	return principals, nil
}

func (s *Seeder) seedItems(ctx context.Context, users []requestcontext.Principal) (int, error) {
	if len(users) < 3 {
		return 0, nil
	}
	admin := users[0]
	now := time.Now()

	items := []struct {
		reporter int
		in       workflow.NewItem
		verify   *workflow.Decision
	}{
		{1, workflow.NewItem{
			Type: "umbrella", Description: "Black folding umbrella", Location: "Library, 2nd floor",
			FoundAt:   now.Add(-26 * time.Hour),
			Questions: []workflow.SecurityQuestion{{Question: "What brand is printed on the strap?", Answer: "Totes"}},
		}, decision(workflow.Approve)},
		{2, workflow.NewItem{
			Type: "water bottle", Description: "Blue steel bottle with stickers", Location: "Gym lobby",
			FoundAt:   now.Add(-5 * time.Hour),
			Questions: []workflow.SecurityQuestion{{Question: "Which sticker is on the lid?", Answer: "A cactus"}},
		}, decision(workflow.Approve)},
		{1, workflow.NewItem{
			Type: "student card", Location: "Cafeteria",
			FoundAt:   now.Add(-2 * time.Hour),
			Questions: []workflow.SecurityQuestion{{Question: "Last four digits of the card number?", Answer: "4821"}},
		}, nil},
		{3, workflow.NewItem{
			Type: "hoodie", Description: "Grey, size M", Location: "Lecture hall B",
			FoundAt:   now.Add(-50 * time.Hour),
			Questions: []workflow.SecurityQuestion{{Question: "What is written on the back?", Answer: "Rowing club"}},
		}, decision(workflow.Reject)},
	}

	created := 0
	for _, it := range items {
		if it.reporter >= len(users) {
			continue
		}
		item, err := s.workflow.ReportItem(ctx, users[it.reporter], it.in)
		if err != nil {
			return created, err
		}
		created++
		if it.verify == nil {
			continue
		}
		if _, err := s.workflow.VerifyItem(ctx, admin, item.ID, *it.verify); err != nil {
			return created, err
		}
	}
	return created, nil
}

func decision(d workflow.Decision) *workflow.Decision {
	return &d
}
