package main

import "github.com/mmcdole/kinosync/internal/cli"

func main() {
	cli.Execute()
}
