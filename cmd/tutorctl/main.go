package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/tutorhub/internal/flagx"
	"github.com/dmitrijs2005/tutorhub/internal/server/config"
	"github.com/dmitrijs2005/tutorhub/internal/tutorctl"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := tutorctl.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	err = app.Run(ctx, flagx.Positional(os.Args[1:]))
	_ = app.Close()

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

}
