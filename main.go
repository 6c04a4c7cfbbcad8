package main

import (
	"log"

	"golang-crossover/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatalf("golang-crossover: %v", err)
	}
}
