package main

import "github.com/goliatone/go-auth-core/cmd/authd/cmd"

func main() {
	cmd.Execute()
}
