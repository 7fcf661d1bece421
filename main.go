package main

import "github.com/vibast-solutions/ms-go-account/cmd"

func main() {
	cmd.Execute()
}
