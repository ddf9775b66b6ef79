package main

import (
	"github.com/VekotinVerstas/sensehel/internal/cli"
	"github.com/VekotinVerstas/sensehel/internal/common/logtrace"
)

func init() {
	logtrace.InitLogger()
}

func main() {
	cli.Execute()
}
