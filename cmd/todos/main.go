// Command todos manages a to-do list from the terminal or serves it to a
// browser.
package main

import "github.com/mesh-intelligence/todos/internal/cli"

func main() {
	cli.Execute()
}
