package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/macroai/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	usage := `
Run a local Postgres for macroai with the environment variables from the .env file.
Prints the DATABASE_URL to use and runs until interrupted.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file (TEST_POSTGRES_IMAGE, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DB)

example
  testcontainers -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	pg, err := testutil.StartPostgres(ctx, nil, os.Getenv("TEST_POSTGRES_IMAGE"))
	if err != nil {
		log.Fatalf("Failed to create test containers: %v\n", err)
	}
	fmt.Printf("DATABASE_URL=%s\n", pg.DSN)

	<-ctx.Done()
	log.Printf("\nReceived signal, terminating test containers...\n")
	pg.Terminate(nil)
}
