// Command main runs the database seeder for Murmur.
package main

import (
	"context"
	"flag"
	"log"

	"murmur/internal/config"
	"murmur/internal/database"
	"murmur/internal/seed"
)

func main() {
	// Parse command line flags
	preset := flag.String("preset", "small", "Seeder preset to apply (see seed/presets.yml)")
	presetsPath := flag.String("presets", seed.DefaultPresetsPath, "Path to the presets file")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("rand-seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	presets, err := seed.LoadPresets(*presetsPath)
	if err != nil {
		log.Fatalf("Failed to load presets: %v", err)
	}
	p, err := seed.Lookup(presets, *preset)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("Preset %s: %d users, %d posts each, clean=%v\n", p.Name, p.Users, p.PostsPerUser, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{RandSeed: *randSeed})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	sum, err := s.Apply(ctx, p)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Done: %d users, %d posts (%d replies), %d follows, %d likes, %d bookmarks, %d communities",
		sum.Users, sum.Posts, sum.Replies, sum.Follows, sum.Likes, sum.Bookmarks, sum.Communities)
}
