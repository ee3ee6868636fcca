package main

import "github.com/erick-otenyo/gisflow/cmd"

func main() {
	cmd.Execute()
}
