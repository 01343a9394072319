package main

import (
	"github.com/ColonelBlimp/cwengine/cmd"
	"github.com/ColonelBlimp/cwengine/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
