package main

import (
	"context"
	"time"

	"github.com/niksmo/prodmng/config"
	"github.com/niksmo/prodmng/internal/app"
	"github.com/niksmo/prodmng/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext(context.Background())
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	prodmng := app.New(sigCtx, cfg)

	prodmng.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	prodmng.Close(ctx)
}
