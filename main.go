package main

import "github.com/nextlevelbuilder/yingbot/cmd"

func main() {
	cmd.Execute()
}
