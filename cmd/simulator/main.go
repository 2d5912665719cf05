// Command simulator runs the business-simulation HTTP API: scene/turn state
// machine, persona routing, LLM-backed goal validation, and per-run grading.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/codeready-toolchain/simulator/pkg/api"
	"github.com/codeready-toolchain/simulator/pkg/config"
	"github.com/codeready-toolchain/simulator/pkg/database"
	"github.com/codeready-toolchain/simulator/pkg/engine"
	"github.com/codeready-toolchain/simulator/pkg/grader"
	"github.com/codeready-toolchain/simulator/pkg/llm"
	"github.com/codeready-toolchain/simulator/pkg/orchestrator"
	"github.com/codeready-toolchain/simulator/pkg/persona"
	"github.com/codeready-toolchain/simulator/pkg/store"
	"github.com/codeready-toolchain/simulator/pkg/validator"

	"github.com/gin-gonic/gin"
)

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", "./deploy/.env"), "Path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	dbClient, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL database and applied migrations")

	llmClient, err := llm.New(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to build LLM client: %v", err)
	}
	log.Printf("Using LLM provider %q (model %s)", llmClient.Name(), llmClient.Model())

	st := store.New(dbClient.DB())
	responder := persona.New(llmClient)
	v := validator.New(llmClient)
	eng := engine.New(engine.DefaultPolicy)
	orch := orchestrator.New(st, responder, v, eng)
	g := grader.New(st, llmClient)

	handlers := api.NewHandlers(st, orch, g)
	router := api.NewRouter(handlers)

	log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
