package main

import "github.com/rvaughn/gatewarden/cmd/gatewarden/cmd"

func main() {
	cmd.Execute()
}
