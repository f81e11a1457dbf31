package main

import (
	"log"

	"wagerchain/services/casinod"
)

func main() {
	if err := casinod.Main(); err != nil {
		log.Fatalf("casinod: %v", err)
	}
}
