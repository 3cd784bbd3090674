package main

import "CANProbe/internal/cmd"

func main() {
	cmd.Execute()
}
