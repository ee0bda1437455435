package main

import "github.com/samson-dev/samson-db/cmd"

func main() {
	cmd.Execute()
}
