// Package main 启动 docshelf 命令行.
package main

import (
	"os"

	"github.com/yeisme/docshelf/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
