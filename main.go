package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/gerdgame/internal/catalog"
	"github.com/robalobadob/gerdgame/internal/config"
	"github.com/robalobadob/gerdgame/internal/db"
	"github.com/robalobadob/gerdgame/internal/httpserver"
	"github.com/robalobadob/gerdgame/internal/progress"
	"github.com/robalobadob/gerdgame/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cat, err := catalog.FromEnv(cfg.CatalogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load food catalog")
	}
	log.Info().
		Int("items", cat.Len()).
		Int("positive", len(cat.Positive())).
		Int("negative", len(cat.Negative())).
		Msg("catalog loaded")

	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer sqlDB.Close()
	if err := db.Migrate(sqlDB); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var progressFor httpserver.ProgressFunc
	if cfg.ProgressBackend == "file" {
		// single installation record shared by every player
		fs := progress.NewFileStore(cfg.ProgressFile)
		progressFor = func(string) progress.Store { return fs }
		log.Info().Str("file", fs.Path()).Msg("progress in file")
	}

	srv := httpserver.New(httpserver.Deps{
		Config:   cfg,
		Catalog:  cat,
		Sessions: store.NewMemoryStore(),
		DB:       sqlDB,
		Progress: progressFor,
		Logger:   log.Logger,
	})
	log.Info().Str("port", cfg.Port).Msg("starting gerd game server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
