package main

import "github.com/yeremiapane/restaurant-ordering/cli"

func main() {
	cli.Execute()
}
