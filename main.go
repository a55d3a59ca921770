package main

import "github.com/platformkit/user-management/cmd"

func main() {
	cmd.Execute()
}
