// Command seed fills the configured store with demo data for Inkwell.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/observability"
	"inkwell/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	maxLikes := flag.Int("max-likes", 10, "Upper bound of likes per post")
	maxComments := flag.Int("max-comments", 5, "Upper bound of comments per post")
	covers := flag.Bool("covers", false, "Upload a generated cover through the media relay for gallery posts")
	fixtures := flag.String("fixtures", "", "Apply a YAML fixture file instead of generating data")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production environment")
	}
	observability.InitLogging(observability.LoggingConfig{
		Environment: cfg.Env,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	var summary seed.Summary
	if *fixtures != "" {
		summary, err = applyFixtures(ctx, rt, *fixtures)
	} else {
		summary, err = seed.NewSeeder(rt.Store, rt.Relay, seed.Options{
			NumUsers:    *numUsers,
			NumPosts:    *numPosts,
			MaxLikes:    *maxLikes,
			MaxComments: *maxComments,
			Covers:      *covers,
			Seed:        *randSeed,
		}).Run(ctx)
	}
	if closeErr := rt.Close(); closeErr != nil {
		log.Printf("Failed to close connections: %v", closeErr)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d likes, %d comments, %d media objects",
		summary.Users, summary.Posts, summary.Likes, summary.Comments, summary.Media)
	if *fixtures == "" {
		log.Printf("All generated users have the password: %s", seed.DefaultPassword)
	}
}

func applyFixtures(ctx context.Context, rt *bootstrap.Runtime, path string) (seed.Summary, error) {
	fx, err := seed.LoadFixtures(path)
	if err != nil {
		return seed.Summary{}, err
	}
	return fx.Apply(ctx, rt.Store, 0)
}
