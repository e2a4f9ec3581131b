package main

import (
	"log"

	"github.com/coursevault/api/app"
)

func main() {
	if err := app.SetupAndRunServer(); err != nil {
		log.Fatal(err)
	}
}
