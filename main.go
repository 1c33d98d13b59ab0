package main

import "github.com/Mohsinsiddi/w3market/cmd"

func main() {
	cmd.Execute()
}
