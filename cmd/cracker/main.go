package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Crack    CrackCmd    `cmd:"" help:"Run a dictionary attack against a credential file."`
	Verify   VerifyCmd   `cmd:"" help:"Check the bcrypt oracle against a known test vector."`
	Estimate EstimateCmd `cmd:"" help:"Print worst-case cracking time per workfactor without cracking."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("cracker"),
		kong.Description("bcrypt dictionary cracker with workfactor-aware parallel scheduling."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run()
	stop()
	kctx.FatalIfErrorf(err)
}
