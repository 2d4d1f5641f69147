package main

import "github.com/placerworks/pnpvision/cmd/pnpvision/cmd"

func main() {
	cmd.Execute()
}
