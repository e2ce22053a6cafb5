package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/jrazmi/growlog/core/client"
	"github.com/jrazmi/growlog/core/repositories/logsrepo"
	"github.com/jrazmi/growlog/core/repositories/plantsrepo"
	"github.com/jrazmi/growlog/core/repositories/strainsrepo"
	"github.com/jrazmi/growlog/core/repositories/tagsrepo"
	"github.com/jrazmi/growlog/core/repositories/usersrepo"
	"github.com/jrazmi/growlog/core/schema"
	"github.com/jrazmi/growlog/sdk/logger"
	"github.com/jrazmi/growlog/sdk/validation"
)

// DemoEmail owns the seeded rows.
const DemoEmail = "demo@growlog.dev"

// Seed fills the database with a demo grower, a strain, tagged plants and a
// few journal entries. It does nothing when the demo grower exists.
func Seed(ctx context.Context, log *logger.Logger, c *client.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	log.InfoContext(ctx, "seeding started")

	existing, err := c.Users.FindUnique(ctx, usersrepo.ByEmail(DemoEmail))
	if err != nil {
		return fmt.Errorf("looking up demo user: %w", err)
	}
	if existing != nil {
		log.InfoContext(ctx, "demo user exists, skipping seed", "user_id", existing.ID)
		return nil
	}

	err = c.Transaction(ctx, func(ctx context.Context, tx *client.Client) error {
		user, err := tx.Users.Create(ctx, usersrepo.CreateUser{
			Email: DemoEmail,
			Name:  validation.Ptr("Demo Grower"),
		})
		if err != nil {
			return fmt.Errorf("user: %w", err)
		}

		strain, err := tx.Strains.Create(ctx, strainsrepo.CreateStrain{
			Name:          "Northern Lights",
			Type:          validation.Ptr("Indica"),
			FloweringTime: validation.Ptr(int64(56)),
			THCContent:    validation.Ptr(18.5),
			UserID:        user.ID,
		})
		if err != nil {
			return fmt.Errorf("strain: %w", err)
		}

		var tagIDs []string
		for _, t := range []tagsrepo.CreateTag{
			{Name: "indoor", Color: validation.Ptr("#4caf50")},
			{Name: "hydro", Color: validation.Ptr("#2196f3")},
		} {
			tag, err := tx.Tags.Upsert(ctx, tagsrepo.ByName(t.Name), t, tagsrepo.UpdateTag{})
			if err != nil {
				return fmt.Errorf("tag %s: %w", t.Name, err)
			}
			tagIDs = append(tagIDs, tag.ID)
		}

		start := time.Now().UTC().AddDate(0, 0, -30)
		plants := []plantsrepo.CreatePlant{
			{Name: "NL #1", StrainID: &strain.ID, Stage: validation.Ptr(schema.StageVegetative), Location: validation.Ptr("Tent A"), StartDate: &start, UserID: user.ID, TagIDs: tagIDs},
			{Name: "NL #2", StrainID: &strain.ID, StartDate: &start, UserID: user.ID, TagIDs: tagIDs[:1]},
		}
		for _, p := range plants {
			plant, err := tx.Plants.Create(ctx, p)
			if err != nil {
				return fmt.Errorf("plant %s: %w", p.Name, err)
			}
			entries := []logsrepo.CreateLog{
				{Type: validation.Ptr(schema.LogTypeWatering), WaterAmount: validation.Ptr(1.5), PH: validation.Ptr(6.2), Date: validation.Ptr(start.AddDate(0, 0, 7))},
				{Type: validation.Ptr(schema.LogTypeFeeding), Nutrients: []string{"Grow A", "Grow B"}, EC: validation.Ptr(1.2), Date: validation.Ptr(start.AddDate(0, 0, 14))},
				{Type: validation.Ptr(schema.LogTypeEnvironmental), Temperature: validation.Ptr(24.0), Humidity: validation.Ptr(60.0), Date: validation.Ptr(start.AddDate(0, 0, 21))},
			}
			for i := range entries {
				entries[i].PlantID = plant.ID
				entries[i].UserID = user.ID
				entries[i].Stage = p.Stage
			}
			if _, err := tx.Logs.CreateMany(ctx, entries, false); err != nil {
				return fmt.Errorf("logs for %s: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	log.InfoContext(ctx, "seeding completed successfully")
	return nil
}
