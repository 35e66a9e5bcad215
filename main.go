package main

import "github.com/Rorical/RoriRoles/cmd"

func main() {
	cmd.Execute()
}
