// promptguard validates LLM inputs and outputs against a safety policy.
package main

import "github.com/ppiankov/promptguard/internal/cli"

func main() {
	cli.Execute()
}
