package main

import "github.com/dbsmedya/phoneclean/cmd/phoneclean/cmd"

func main() {
	cmd.Execute()
}
