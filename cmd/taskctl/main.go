package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

func main() {
	root := newRootCmd(viper.New())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
