package main

import (
	"log"

	"factorlab/cmd"
)

func main() {
	deps, err := cmd.InitializeDependencies("")
	if err != nil {
		log.Fatal(err)
	}
	defer cmd.CloseDependencies(deps)

	if err := deps.ApiHandler.StartApi(3009); err != nil {
		deps.Log.Fatal(err)
	}
}
