package main

import (
	"os"

	llmstreamcmder "github.com/kbukum/llmstream/cmd/llmstream"
)

func main() {
	if err := llmstreamcmder.NewLLMStreamCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
