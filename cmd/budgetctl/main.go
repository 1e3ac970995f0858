package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/budgetkeeper/internal/server/ctl"
)

func main() {
	cmd := ctl.NewRootCmd(ctl.OpenDatabase, os.Stdout)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
