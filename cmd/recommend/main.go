package main

import "github.com/assessment-engine/recommender/internal/cli"

func main() {
	cli.Execute()
}
