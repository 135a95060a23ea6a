package main

import "wellbeing-backend/cmd"

func main() {
	cmd.Run()
}
