package main

import "github.com/Another0Noob/romfilter/cmd"

func main() {
	cmd.Execute()
}
