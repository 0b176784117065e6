package main

import "github.com/innocode-digital/scaffold-theme/pkg/cmd"

func main() {
	cmd.Execute()
}
