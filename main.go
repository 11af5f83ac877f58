package main

import "github.com/Digital-Shane/metahub/internal/cmd"

func main() {
	cmd.Execute()
}
