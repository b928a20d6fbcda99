// Command seed loads products and coupons from a YAML file into the document
// store used by the cart and orders services.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/catalog"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/config"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/logger"
)

func main() {
	path := flag.String("file", "seed.yaml", "YAML file with products and coupons")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		boot := logger.New("seed", "info", false)
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New("seed", cfg.Log.Level, cfg.Log.Pretty)

	seed, err := catalog.LoadSeed(*path)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("failed to load seed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := docstore.Connect(ctx, cfg.Store.MongoURI, cfg.Store.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	docs := docstore.NewMongoStore(db)
	if err := seed.Apply(ctx, catalog.NewStore(docs), coupon.NewStoreRepository(docs)); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}

	log.Info().
		Int("products", len(seed.Products)).
		Int("coupons", len(seed.Coupons)).
		Str("database", cfg.Store.Database).
		Msg("seed applied")
}
