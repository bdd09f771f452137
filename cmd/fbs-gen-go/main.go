package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"

	"github.com/goaux/headline"
	"github.com/takumakei/fbs-gen-go/generator"
)

//go:embed usage.md
var usage string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	generator.Main(ctx, generator.Config{
		Use:        "fbs-gen-go [schema-dir]",
		Short:      headline.Get(usage),
		Long:       usage,
		Version:    "v0.1.0",
		ConfigFile: "fbsgen.yaml",
		Defaults:   generator.DefaultOptions(),
	})
}
