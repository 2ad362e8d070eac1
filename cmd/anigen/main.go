// AniGen is a credit-gated studio that turns genre, mood, and tempo into an
// atmosphere description with spoken audio, and renders anime illustrations.
//
// Usage:
//
//	anigen serve --config /path/to/anigen.yaml
//	anigen compose --genre Jazz --mood Epic --export
//	anigen balance
//
//	@title						AniGen API
//	@version					1.0
//	@description				Credit-gated music theme and illustration generation.
//	@BasePath					/
//	@securityDefinitions.apikey	AdminToken
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	_ "github.com/anigen/anigen/docs"
	"github.com/anigen/anigen/internal/cli"
)

func main() {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "anigen: loading .env: %v\n", err)
	}

	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "anigen: %v\n", err)
		os.Exit(1)
	}
}
