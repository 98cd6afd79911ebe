// Command seedrules writes the built-in urgency rules to the rules table so
// they can be edited in place.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"medical-triage/internal/repository"
	"medical-triage/internal/triage"
)

func main() {
	ctx := context.Background()

	table := os.Getenv("RULES_TABLE")
	if table == "" {
		slog.Error("required environment variable is not set", "key", "RULES_TABLE")
		os.Exit(1)
	}
	ruleset := os.Getenv("RULESET")

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	rules, err := repository.New(awsdynamodb.NewFromConfig(cfg), table, ruleset)
	if err != nil {
		slog.Error("failed to create rules client", "err", err)
		os.Exit(1)
	}
	if err := rules.SaveRules(ctx, triage.DefaultRules()); err != nil {
		slog.Error("failed to save rules", "err", err)
		os.Exit(1)
	}
	slog.Info("urgency rules written", "table", table, "ruleset", rules.Ruleset())
}
